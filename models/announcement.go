package models

import (
	"time"
)

type Announcement struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Link        string    `gorm:"type:varchar(512)" json:"link,omitempty"`
	ImageURL    string    `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
