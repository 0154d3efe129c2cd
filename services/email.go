package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/utils"
)

const DefaultResendURL = "https://api.resend.com/emails"

type EmailConfig struct {
	APIKey  string
	From    string
	BaseURL string
}

// EmailResult describes an accepted email. Simulated is true when no API
// key is configured and the email was only logged.
type EmailResult struct {
	ID        string
	Simulated bool
}

// EmailClient sends transactional email through Resend.
type EmailClient struct {
	config     EmailConfig
	httpClient *http.Client
}

func NewEmailClient(cfg EmailConfig) *EmailClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultResendURL
	}
	if cfg.From == "" {
		cfg.From = "Ai Cavalli <onboarding@resend.dev>"
	}
	return &EmailClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>?`)

func (c *EmailClient) Send(ctx context.Context, to, subject, html string) (EmailResult, error) {
	if c.config.APIKey == "" {
		preview := strings.Join(strings.Fields(tagPattern.ReplaceAllString(html, " ")), " ")
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		utils.InfoLogger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"preview": preview,
		}).Info("EMAIL SIMULATION (no RESEND_API_KEY)")
		return EmailResult{Simulated: true}, nil
	}

	body, err := json.Marshal(map[string]string{
		"from":    c.config.From,
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return EmailResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return EmailResult{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return EmailResult{}, fmt.Errorf("email request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = resp.Status
		}
		return EmailResult{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	return EmailResult{ID: out.ID}, nil
}

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "frame"}}<div style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 40px; border: 1px solid #d4af37; background: #fff;">
<div style="text-align: center; margin-bottom: 32px;">
<h1 style="color: #c0272d; margin-bottom: 5px;">{{.Restaurant}}</h1>
<p style="text-transform: uppercase; letter-spacing: 2px; color: #666; font-size: 12px;">Il Ristorante della Scuderia</p>
</div>{{end}}

{{define "footer"}}<div style="margin-top: 50px; text-align: center; border-top: 1px solid #eee; padding-top: 20px; color: #999; font-size: 12px;">
<p>Grazie per aver cenato con noi!</p>
</div></div>{{end}}

{{define "otp"}}{{template "frame" .}}
<p>Hello {{.Name}},</p>
<p>Your verification code is:</p>
<p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
<p>This code will expire in 5 minutes. Do not share it with anyone.</p>
{{template "footer" .}}{{end}}

{{define "receipt"}}{{template "frame" .}}
<h2 style="border-bottom: 2px solid #c0272d; padding-bottom: 10px; color: #333;">{{.Title}}</h2>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Reference:</strong> {{.Reference}}</p>
<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
<thead><tr style="color: #666; font-size: 11px; text-transform: uppercase;"><th style="text-align: left;">Item</th><th style="text-align: right;">Total</th></tr></thead>
<tbody>{{range .Items}}
<tr><td style="padding: 10px 0; border-bottom: 1px solid #eee;">{{.Name}} x {{.Quantity}}</td><td style="padding: 10px 0; border-bottom: 1px solid #eee; text-align: right;">{{.Amount}}</td></tr>{{end}}
</tbody>
</table>
{{if .Discount}}<p style="text-align: right;">Discount: {{.Discount}}</p>{{end}}
<p style="text-align: right; font-size: 1.2rem; font-weight: bold; color: #c0272d;">Total Amount: {{.Total}}</p>
{{if .PaymentLink}}<p style="text-align: center;"><a href="{{.PaymentLink}}">Pay via UPI</a></p>{{end}}
{{template "footer" .}}{{end}}

{{define "reset"}}{{template "frame" .}}
<p>Hello {{.Name}},</p>
<p>We received a request to reset your PIN. The link below is valid for 30 minutes.</p>
<p style="text-align: center;"><a href="{{.Link}}" style="background: #c0272d; color: #fff; padding: 12px 24px; text-decoration: none;">Reset PIN</a></p>
<p>If you did not request this, you can ignore this email.</p>
{{template "footer" .}}{{end}}
`))

type receiptRow struct {
	Name     string
	Quantity int
	Amount   string
}

type receiptView struct {
	Restaurant  string
	Title       string
	Date        string
	Reference   string
	Items       []receiptRow
	Discount    string
	Total       string
	PaymentLink template.URL
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

// OTPEmail renders the login code email.
func OTPEmail(restaurant, name, code string) (string, error) {
	return render("otp", struct{ Restaurant, Name, Code string }{restaurant, name, code})
}

// PINResetEmail renders the PIN reset email.
func PINResetEmail(restaurant, name, link string) (string, error) {
	return render("reset", struct {
		Restaurant, Name string
		Link             template.URL
	}{restaurant, name, template.URL(link)})
}

// ReceiptEmail renders a consolidated bill as HTML.
func ReceiptEmail(restaurant, title, reference string, bill billing.Bill, payment billing.PaymentConfig, at time.Time) (string, error) {
	view := receiptView{
		Restaurant: restaurant,
		Title:      title,
		Date:       at.In(billing.IST).Format("02 Jan 2006"),
		Reference:  shortID(reference),
		Total:      billing.Money(bill.FinalTotal),
	}
	for _, item := range bill.Items {
		view.Items = append(view.Items, receiptRow{Name: item.Name, Quantity: item.Quantity, Amount: billing.Money(item.Amount())})
	}
	if bill.DiscountAmount.IsPositive() {
		view.Discount = billing.MoneyNeg(bill.DiscountAmount)
	}
	if link, ok := billing.PaymentLink(payment, bill.FinalTotal); ok {
		view.PaymentLink = template.URL(link)
	}
	return render("receipt", view)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
