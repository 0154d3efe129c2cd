package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/config"
	"github.com/yeremiapane/cavalli-app/controllers"
	"github.com/yeremiapane/cavalli-app/database"
	"github.com/yeremiapane/cavalli-app/router"
	"github.com/yeremiapane/cavalli-app/services"
	"github.com/yeremiapane/cavalli-app/storage"
	"github.com/yeremiapane/cavalli-app/utils"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

// newImageStore picks the upload backend. The returned directory is served
// under /uploads and is empty for S3.
func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, string, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		return store, "", err
	}
	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	return store, cfg.UploadDir, err
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	utils.InitJWT(cfg.JWTSecret, cfg.TokenTTL)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	monitor := services.NewDeliveryMonitor(time.Minute)
	monitor.Start(ctx)
	defer monitor.Stop()

	services.NewOTPJanitor(db, 5*time.Minute).Start(ctx)

	payment := billing.PaymentConfig{PaymentID: cfg.UPIID, MerchantName: cfg.MerchantName}
	whatsapp := services.NewWhatsAppClient(services.WhatsAppConfig{
		APIKey:      cfg.GupshupAPIKey,
		SourcePhone: cfg.GupshupPhoneNumber,
		AppName:     cfg.RestaurantName,
		BaseURL:     cfg.GupshupBaseURL,
	})
	if err := whatsapp.ValidateConfig(); err != nil {
		utils.InfoLogger.Warn("Gupshup credentials missing, WhatsApp bills are disabled")
	}
	notifier := &services.Notifier{
		WhatsApp: whatsapp,
		Email: services.NewEmailClient(services.EmailConfig{
			APIKey:  cfg.ResendAPIKey,
			From:    cfg.ResendFrom,
			BaseURL: cfg.ResendBaseURL,
		}),
		Monitor:    monitor,
		Restaurant: cfg.RestaurantName,
		Payment:    payment,
	}

	images, uploadDir, err := newImageStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up image storage: %w", err)
	}

	r := router.SetupRouter(router.Dependencies{
		DB:       db,
		Notifier: notifier,
		Images:   images,
		Bill: billing.Options{
			RestaurantName: cfg.RestaurantName,
			Payment:        payment,
		},
		Auth: controllers.AuthConfig{
			InternalEmailDomain: cfg.InternalEmailDomain,
			AppBaseURL:          cfg.AppBaseURL,
		},
		AllowedOrigins: cfg.AllowedOrigins(),
		UploadDir:      uploadDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
