package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/utils"
)

type Messenger interface {
	SendMessage(ctx context.Context, phone, text string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) (EmailResult, error)
}

// Notifier composes guest facing messages and hands them to the delivery
// channels. Bill and order messages go through the DeliveryMonitor so
// transient failures are retried.
type Notifier struct {
	WhatsApp   Messenger
	Email      Mailer
	Monitor    *DeliveryMonitor
	Restaurant string
	Payment    billing.PaymentConfig
}

func (n *Notifier) restaurant() string {
	if n.Restaurant == "" {
		return billing.DefaultRestaurantName
	}
	return n.Restaurant
}

func (n *Notifier) deliver(ctx context.Context, job *DeliveryJob) error {
	if n.Monitor == nil {
		return job.Send(ctx)
	}
	return n.Monitor.Deliver(ctx, job)
}

// SendOTP emails the login code and, when a phone is known, also sends it on
// WhatsApp. Only the email outcome is returned.
func (n *Notifier) SendOTP(ctx context.Context, email, phone, name, code string) error {
	if phone != "" && n.WhatsApp != nil {
		if _, err := n.WhatsApp.SendMessage(ctx, phone, OTPMessage(n.restaurant(), code)); err != nil {
			utils.ErrorLogger.WithError(err).WithField("phone", utils.FormatPhoneDisplay(phone)).Warn("WhatsApp OTP not sent")
		}
	}

	html, err := OTPEmail(n.restaurant(), name, code)
	if err != nil {
		return err
	}
	if _, err := n.Email.Send(ctx, email, fmt.Sprintf("Your %s login code", n.restaurant()), html); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

// DeliverBill sends the closing bill on WhatsApp and, when email is set, as
// an HTML receipt.
func (n *Notifier) DeliverBill(ctx context.Context, session billing.Session, bill billing.Bill, email string, endedAt time.Time) {
	opts := billing.Options{RestaurantName: n.restaurant(), Payment: n.Payment, EndedAt: endedAt}

	if n.WhatsApp != nil && session.GuestPhone != "" {
		message := billing.RenderMessage(session, bill, opts)
		_ = n.deliver(ctx, &DeliveryJob{
			Key:     "bill-whatsapp-" + session.ID,
			Channel: "whatsapp",
			Send: func(ctx context.Context) error {
				_, err := n.WhatsApp.SendMessage(ctx, session.GuestPhone, message)
				return err
			},
		})
	}

	if email == "" {
		return
	}
	html, err := ReceiptEmail(n.restaurant(), "Session Bill", session.ID, bill, n.Payment, endedAt)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("Failed to render bill email")
		return
	}
	subject := fmt.Sprintf("Your Receipt from %s - %s", n.restaurant(), billing.Money(bill.FinalTotal))
	_ = n.deliver(ctx, &DeliveryJob{
		Key:     "bill-email-" + session.ID,
		Channel: "email",
		Send: func(ctx context.Context) error {
			_, err := n.Email.Send(ctx, email, subject, html)
			return err
		},
	})
}

// SendOrderConfirmation emails the receipt of a single order.
func (n *Notifier) SendOrderConfirmation(ctx context.Context, email, orderID string, bill billing.Bill, at time.Time) error {
	html, err := ReceiptEmail(n.restaurant(), "Order Receipt", orderID, bill, billing.PaymentConfig{}, at)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Your Receipt from %s - %s", n.restaurant(), billing.Money(bill.FinalTotal))
	return n.deliver(ctx, &DeliveryJob{
		Key:     "order-email-" + orderID,
		Channel: "email",
		Send: func(ctx context.Context) error {
			_, err := n.Email.Send(ctx, email, subject, html)
			return err
		},
	})
}

func (n *Notifier) SendPINReset(ctx context.Context, email, name, link string) error {
	html, err := PINResetEmail(n.restaurant(), name, link)
	if err != nil {
		return err
	}
	if _, err := n.Email.Send(ctx, email, fmt.Sprintf("Reset your %s PIN", n.restaurant()), html); err != nil {
		return fmt.Errorf("send pin reset email: %w", err)
	}
	return nil
}
