package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// GuestInfo is a snapshot of who placed a guest order.
type GuestInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Order struct {
	ID             string                         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string                         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User           *User                          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SessionID      *string                        `gorm:"type:varchar(36);index" json:"session_id,omitempty"`
	GuestInfo      *datatypes.JSONType[GuestInfo] `json:"guest_info,omitempty"`
	TableName      string                         `gorm:"type:varchar(50);not null" json:"table_name"`
	LocationType   string                         `gorm:"type:varchar(20);not null;default:'dine_in'" json:"location_type"`
	NumGuests      int                            `gorm:"not null;default:1" json:"num_guests"`
	Total          decimal.Decimal                `gorm:"type:decimal(10,2);not null" json:"total"`
	DiscountAmount decimal.Decimal                `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	Status         string                         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes          string                         `gorm:"type:text" json:"notes,omitempty"`
	Items          []OrderItem                    `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt      time.Time                      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

// nextStatus lists the forward step of the kitchen workflow.
var nextStatus = map[string]string{
	OrderPending:   OrderPreparing,
	OrderPreparing: OrderReady,
	OrderReady:     OrderCompleted,
}

// CanTransition reports whether an order may move from one status to another.
// Any non terminal order may be cancelled.
func CanTransition(from, to string) bool {
	if to == OrderCancelled {
		return from != OrderCompleted && from != OrderCancelled
	}
	return nextStatus[from] == to
}

// OpenKitchenStatuses are shown on the kitchen display.
var OpenKitchenStatuses = []string{OrderPending, OrderPreparing, OrderReady}
