package services

import (
	"context"
	"time"

	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

// OTPJanitor periodically removes expired login codes and revoked tokens
// that have expired on their own.
type OTPJanitor struct {
	db       *gorm.DB
	interval time.Duration
	// codes stay a while after expiry so the send rate limit can count them
	retention time.Duration
}

func NewOTPJanitor(db *gorm.DB, interval time.Duration) *OTPJanitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OTPJanitor{db: db, interval: interval, retention: 15 * time.Minute}
}

func (j *OTPJanitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := j.Purge(now); err != nil {
					utils.ErrorLogger.Printf("Error purging expired OTP codes: %v", err)
				}
			}
		}
	}()
	utils.InfoLogger.Println("OTP janitor started")
}

// Purge deletes codes that expired before now minus the retention window.
func (j *OTPJanitor) Purge(now time.Time) (int64, error) {
	result := j.db.Where("expires_at < ?", now.Add(-j.retention)).Delete(&models.OTPCode{})
	if result.Error != nil {
		return 0, result.Error
	}

	tokens := utils.PurgeBlacklist(now)
	if result.RowsAffected > 0 || tokens > 0 {
		utils.InfoLogger.Printf("Purged %d expired OTP codes and %d revoked tokens", result.RowsAffected, tokens)
	}
	return result.RowsAffected, nil
}
