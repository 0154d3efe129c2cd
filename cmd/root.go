package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/cavalli-app/config"
	"github.com/yeremiapane/cavalli-app/utils"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "cavalli",
	Short: "Ai Cavalli restaurant ordering backend",
	Long: `cavalli runs the Ai Cavalli ordering API: guest and staff sign in, dining
sessions with consolidated bills, the kitchen display and the admin dashboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default is .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(billCmd)
}

// loadConfig reads the env file named by --env and sets up logging.
func loadConfig() (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.LogLevel)
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
