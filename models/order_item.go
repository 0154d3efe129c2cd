package models

import (
	"github.com/shopspring/decimal"
)

// OrderItem snapshots name and price at order time and is never updated.
type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	MenuItemID string          `gorm:"type:varchar(36);not null" json:"menu_item_id"`
	ItemName   string          `gorm:"type:varchar(255)" json:"item_name"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (oi OrderItem) Subtotal() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}
