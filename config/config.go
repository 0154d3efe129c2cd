package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`

	DBDriver    string `mapstructure:"db_driver"`
	DatabaseURL string `mapstructure:"database_url"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	LogLevel  string        `mapstructure:"log_level"`

	RestaurantName      string `mapstructure:"restaurant_name"`
	UPIID               string `mapstructure:"upi_id"`
	MerchantName        string `mapstructure:"merchant_name"`
	AppBaseURL          string `mapstructure:"app_base_url"`
	InternalEmailDomain string `mapstructure:"internal_email_domain"`

	GupshupAPIKey      string `mapstructure:"gupshup_api_key"`
	GupshupPhoneNumber string `mapstructure:"gupshup_phone_number"`
	GupshupBaseURL     string `mapstructure:"gupshup_base_url"`

	ResendAPIKey  string `mapstructure:"resend_api_key"`
	ResendFrom    string `mapstructure:"resend_from"`
	ResendBaseURL string `mapstructure:"resend_base_url"`

	StorageDriver string `mapstructure:"storage_driver"`
	UploadDir     string `mapstructure:"upload_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	S3Bucket      string `mapstructure:"s3_bucket"`
	S3Endpoint    string `mapstructure:"s3_endpoint"`
	S3Region      string `mapstructure:"s3_region"`
	S3AccessKey   string `mapstructure:"s3_access_key"`
	S3SecretKey   string `mapstructure:"s3_secret_key"`

	CORSOrigins string `mapstructure:"cors_origins"`

	AdminPhone string `mapstructure:"admin_phone"`
	AdminPIN   string `mapstructure:"admin_pin"`
}

var defaults = map[string]interface{}{
	"port":                  "8080",
	"gin_mode":              "debug",
	"db_driver":             "sqlite",
	"database_url":          "cavalli.db",
	"jwt_secret":            "",
	"token_ttl":             "24h",
	"log_level":             "info",
	"restaurant_name":       "AI CAVALLI",
	"upi_id":                "",
	"merchant_name":         "",
	"app_base_url":          "http://localhost:3000",
	"internal_email_domain": "aicavalli.com",
	"gupshup_api_key":       "",
	"gupshup_phone_number":  "",
	"gupshup_base_url":      "https://api.gupshup.io/wa/api/v1/msg",
	"resend_api_key":        "",
	"resend_from":           "Ai Cavalli <onboarding@resend.dev>",
	"resend_base_url":       "https://api.resend.com/emails",
	"storage_driver":        "local",
	"upload_dir":            "uploads",
	"public_base_url":       "http://localhost:8080",
	"s3_bucket":             "",
	"s3_endpoint":           "",
	"s3_region":             "auto",
	"s3_access_key":         "",
	"s3_secret_key":         "",
	"cors_origins":          "http://localhost:3000",
	"admin_phone":           "",
	"admin_pin":             "",
}

// Load reads .env (when present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.InternalEmailDomain = strings.TrimPrefix(strings.ToLower(cfg.InternalEmailDomain), "@")

	switch cfg.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.StorageDriver {
	case "local", "s3":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	return &cfg, nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
