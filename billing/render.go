package billing

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRestaurantName is printed when Options.RestaurantName is empty.
const DefaultRestaurantName = "AI CAVALLI"

// IST is the zone bill timestamps are shown in unless Options.Location is set.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	receiptRule  = "-------------------------------------"
	receiptFrame = "====================================="
	messageRule  = "━━━━━━━━━━━━━━━━━━━━━━━━"
)

// PaymentConfig holds the UPI payee details. Both fields are optional.
type PaymentConfig struct {
	PaymentID    string
	MerchantName string
}

// Options controls the presentation of a rendered bill.
type Options struct {
	RestaurantName string
	Payment        PaymentConfig
	Location       *time.Location
	EndedAt        time.Time
}

func (o Options) restaurant() string {
	if o.RestaurantName == "" {
		return DefaultRestaurantName
	}
	return o.RestaurantName
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return IST
	}
	return o.Location
}

// Money formats an amount with two decimals and the rupee sign.
func Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-₹" + d.Neg().StringFixed(2)
	}
	return "₹" + d.StringFixed(2)
}

// MoneyNeg formats an amount taken off the bill, e.g. 50 -> "-₹50.00".
func MoneyNeg(d decimal.Decimal) string {
	return Money(d.Neg())
}

// PaymentLink builds a UPI deep link for amount. It reports false when no
// payment id is configured so callers can skip the payment section.
func PaymentLink(cfg PaymentConfig, amount decimal.Decimal) (string, bool) {
	if cfg.PaymentID == "" {
		return "", false
	}
	name := cfg.MerchantName
	if name == "" {
		name = DefaultRestaurantName
	}
	pn := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=INR", cfg.PaymentID, pn, amount.StringFixed(2)), true
}

// ReceiptRow formats one consolidated row as name(20) qty(3) amount(9).
func ReceiptRow(item BillItem) string {
	return fmt.Sprintf("%-20.20s%3d%9s", item.Name, item.Quantity, Money(item.Amount()))
}

// RenderReceipt produces the fixed-width console/printer representation.
func RenderReceipt(session Session, bill Bill, opts Options) string {
	var b strings.Builder

	b.WriteString(receiptFrame + "\n")
	b.WriteString(fmt.Sprintf("   %s - SESSION BILL\n", strings.ToUpper(opts.restaurant())))
	b.WriteString(receiptFrame + "\n\n")

	b.WriteString(fmt.Sprintf("Guest: %s\n", session.GuestName))
	b.WriteString(fmt.Sprintf("Table: %s\n", session.TableName))
	b.WriteString(fmt.Sprintf("Number of Guests: %d\n", session.NumGuests))
	b.WriteString(fmt.Sprintf("Total Orders: %d\n\n", bill.OrderCount))

	for i, order := range session.Orders {
		b.WriteString(fmt.Sprintf("--- Order %d ---\n", i+1))
		for _, li := range order.Items {
			b.WriteString(fmt.Sprintf("  %s x%d @ %s = %s\n",
				li.DisplayName(), li.Quantity, Money(li.Price), Money(li.Subtotal())))
		}
		if d := order.DiscountOrZero(); d.IsPositive() {
			b.WriteString(fmt.Sprintf("  [Discount Applied: %s]\n", MoneyNeg(d)))
		}
	}

	b.WriteString("\n" + receiptFrame + "\n")
	b.WriteString("     CONSOLIDATED BILL\n")
	b.WriteString(receiptFrame + "\n")
	b.WriteString(fmt.Sprintf("%-20s%3s%9s\n", "ITEM", "QTY", "AMOUNT"))
	b.WriteString(receiptRule + "\n")
	for _, item := range bill.Items {
		b.WriteString(ReceiptRow(item) + "\n")
	}
	b.WriteString(receiptRule + "\n")
	b.WriteString(fmt.Sprintf("%-23s%14s\n", "Items Total:", Money(bill.ItemsTotal)))
	if bill.DiscountAmount.IsPositive() {
		b.WriteString(fmt.Sprintf("%-23s%14s\n", "Total Discount:", MoneyNeg(bill.DiscountAmount)))
	}
	b.WriteString(receiptRule + "\n")
	b.WriteString(fmt.Sprintf("%-23s%14s\n", "FINAL TOTAL:", Money(bill.FinalTotal)))
	b.WriteString(receiptFrame + "\n")
	b.WriteString(fmt.Sprintf("Thank you for dining at %s!\n", opts.restaurant()))
	b.WriteString(receiptFrame + "\n")

	return b.String()
}

// RenderMessage produces the WhatsApp formatted bill summary.
func RenderMessage(session Session, bill Bill, opts Options) string {
	loc := opts.location()
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🍽️ %s\n", opts.restaurant()))
	b.WriteString(messageRule + "\n\n")
	b.WriteString(fmt.Sprintf("Hello %s! 👋\n\n", session.GuestName))
	b.WriteString("Thank you for dining with us!\n\n")

	b.WriteString("📋 *Session Summary*\n")
	b.WriteString(fmt.Sprintf("Table: %s\n", session.TableName))
	b.WriteString(fmt.Sprintf("Guests: %d\n", session.NumGuests))
	if !session.StartedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Started: %s\n", session.StartedAt.In(loc).Format("02 Jan 2006, 03:04 PM")))
	}
	if !opts.EndedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Ended: %s\n", opts.EndedAt.In(loc).Format("02 Jan 2006, 03:04 PM")))
	}
	b.WriteString("\n" + messageRule + "\n\n")

	b.WriteString("📦 *Your Orders*\n\n")
	for i, order := range session.Orders {
		b.WriteString(fmt.Sprintf("*Order #%d* (%s)\n", i+1, order.CreatedAt.In(loc).Format("03:04 PM")))
		b.WriteString(fmt.Sprintf("Subtotal: %s\n", Money(order.Subtotal())))
		if d := order.DiscountOrZero(); d.IsPositive() {
			b.WriteString(fmt.Sprintf("Discount: %s\n", MoneyNeg(d)))
		}
		b.WriteString("\n")
	}
	b.WriteString(messageRule + "\n\n")

	b.WriteString("🧾 *Items*\n")
	for _, item := range bill.Items {
		b.WriteString(fmt.Sprintf("• %s x%d - %s\n", item.Name, item.Quantity, Money(item.Amount())))
	}
	b.WriteString("\n" + messageRule + "\n\n")

	b.WriteString("💰 *Bill Summary*\n")
	b.WriteString(fmt.Sprintf("Items Total: %s\n", Money(bill.ItemsTotal)))
	if bill.DiscountAmount.IsPositive() {
		b.WriteString(fmt.Sprintf("Discount: %s\n", MoneyNeg(bill.DiscountAmount)))
	}
	b.WriteString(messageRule + "\n")
	b.WriteString(fmt.Sprintf("*TOTAL: %s*\n\n", Money(bill.FinalTotal)))
	b.WriteString(messageRule + "\n\n")

	if link, ok := PaymentLink(opts.Payment, bill.FinalTotal); ok {
		b.WriteString("💳 *Pay Now via UPI*\n")
		b.WriteString(link + "\n\n")
		b.WriteString("Or scan QR code at the counter.\n\n")
	}

	b.WriteString("Thank you! Visit again! 🙏")
	return b.String()
}
