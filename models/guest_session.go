package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// GuestSession groups the orders of one dining visit.
// A guest phone has at most one active session: ActivePhone mirrors
// GuestPhone while active and is NULL once closed, and carries a unique index.
type GuestSession struct {
	ID              string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          *string          `gorm:"type:varchar(36);index" json:"user_id,omitempty"`
	GuestName       string           `gorm:"type:varchar(255);not null" json:"guest_name"`
	GuestPhone      string           `gorm:"type:varchar(10);not null;index" json:"guest_phone"`
	ActivePhone     *string          `gorm:"type:varchar(10);uniqueIndex" json:"-"`
	GuestEmail      string           `gorm:"type:varchar(255)" json:"guest_email,omitempty"`
	TableName       string           `gorm:"type:varchar(50);not null" json:"table_name"`
	NumGuests       int              `gorm:"not null;default:1" json:"num_guests"`
	Status          string           `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	BillRequested   bool             `gorm:"not null;default:false" json:"bill_requested"`
	BillRequestedAt *time.Time       `json:"bill_requested_at,omitempty"`
	TotalAmount     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"total_amount,omitempty"`
	StartedAt       time.Time        `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
	Orders          []Order          `gorm:"foreignKey:SessionID" json:"orders,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// holdPhone sets ActivePhone from the status.
func (s *GuestSession) holdPhone() {
	if s.Status == "" || s.Status == SessionActive {
		phone := s.GuestPhone
		s.ActivePhone = &phone
		return
	}
	s.ActivePhone = nil
}

func (s *GuestSession) IsActive() bool {
	return s.Status == SessionActive
}
