package models

import "time"

// OTPCode is a hashed one time guest login code.
type OTPCode struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"type:varchar(255);not null;index"`
	Phone     string    `gorm:"type:varchar(10)"`
	CodeHash  string    `gorm:"type:varchar(255);not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Attempts  int       `gorm:"not null;default:0"`
	Consumed  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index"`
}
