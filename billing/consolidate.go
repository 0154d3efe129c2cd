// Package billing merges every order of a dining session into one itemised
// bill and renders it for receipts, messaging and print.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownItemName is used for line items whose menu name was not loaded.
const UnknownItemName = "Unknown Item"

// LineItem is a point-in-time snapshot of one ordered menu item.
type LineItem struct {
	Name     *string         `json:"name,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// DisplayName returns the item name or UnknownItemName when it is absent.
func (li LineItem) DisplayName() string {
	if li.Name == nil || *li.Name == "" {
		return UnknownItemName
	}
	return *li.Name
}

// Subtotal is quantity times unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is one checkout event inside a session.
// A nil Discount counts as zero; a nil Total is derived from the items.
type Order struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	Discount  *decimal.Decimal `json:"discount_amount,omitempty"`
	Items     []LineItem       `json:"order_items"`
}

// DiscountOrZero returns the order discount, treating nil as zero.
func (o Order) DiscountOrZero() decimal.Decimal {
	if o.Discount == nil {
		return decimal.Zero
	}
	return *o.Discount
}

// Subtotal returns the stored total when present, otherwise the item sum.
func (o Order) Subtotal() decimal.Decimal {
	if o.Total != nil {
		return *o.Total
	}
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// Session is a fully loaded dining session snapshot.
type Session struct {
	ID         string    `json:"id"`
	GuestName  string    `json:"guest_name"`
	GuestPhone string    `json:"guest_phone"`
	TableName  string    `json:"table_name"`
	NumGuests  int       `json:"num_guests"`
	StartedAt  time.Time `json:"started_at"`
	Orders     []Order   `json:"orders"`
}

// BillItem is one consolidated row of the bill.
type BillItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Amount is the row total.
func (bi BillItem) Amount() decimal.Decimal {
	return bi.Price.Mul(decimal.NewFromInt(int64(bi.Quantity)))
}

// Bill is the consolidated result for a session.
type Bill struct {
	ItemsTotal     decimal.Decimal `json:"items_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
	ItemCount      int             `json:"item_count"`
	OrderCount     int             `json:"order_count"`
	Items          []BillItem      `json:"items"`
}

type groupKey struct {
	name  string
	price string
}

// Consolidate merges line items with the same name and unit price across all
// orders of the session. Rows keep first-insertion order. Discounts are not
// clamped, so FinalTotal may be negative.
func Consolidate(session Session) Bill {
	index := make(map[groupKey]int)
	items := make([]BillItem, 0)
	itemsTotal := decimal.Zero
	discountTotal := decimal.Zero

	for _, order := range session.Orders {
		discountTotal = discountTotal.Add(order.DiscountOrZero())

		for _, li := range order.Items {
			name := li.DisplayName()
			// String() is canonical, so 150 and 150.00 share a key
			key := groupKey{name: name, price: li.Price.String()}

			if pos, ok := index[key]; ok {
				items[pos].Quantity += li.Quantity
			} else {
				index[key] = len(items)
				items = append(items, BillItem{
					Name:     name,
					Quantity: li.Quantity,
					Price:    li.Price,
				})
			}

			itemsTotal = itemsTotal.Add(li.Subtotal())
		}
	}

	return Bill{
		ItemsTotal:     itemsTotal,
		DiscountAmount: discountTotal,
		FinalTotal:     itemsTotal.Sub(discountTotal),
		ItemCount:      len(items),
		OrderCount:     len(session.Orders),
		Items:          items,
	}
}
