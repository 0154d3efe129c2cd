package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/utils"
)

const DefaultGupshupURL = "https://api.gupshup.io/wa/api/v1/msg"

var tenDigits = regexp.MustCompile(`^\d{10}$`)

// WhatsAppConfig holds the Gupshup account settings.
type WhatsAppConfig struct {
	APIKey      string
	SourcePhone string
	AppName     string
	BaseURL     string
}

// WhatsAppClient sends text messages through the Gupshup WhatsApp API.
type WhatsAppClient struct {
	config     WhatsAppConfig
	httpClient *http.Client
}

func NewWhatsAppClient(cfg WhatsAppConfig) *WhatsAppClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGupshupURL
	}
	if cfg.AppName == "" {
		cfg.AppName = billing.DefaultRestaurantName
	}
	return &WhatsAppClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ValidateConfig reports ErrNotConfigured when credentials are missing.
func (c *WhatsAppClient) ValidateConfig() error {
	if c.config.APIKey == "" || c.config.SourcePhone == "" {
		return ErrNotConfigured
	}
	return nil
}

type gupshupResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

// SendMessage delivers text to a ten digit Indian mobile number and returns
// the provider message id.
func (c *WhatsAppClient) SendMessage(ctx context.Context, phone, text string) (string, error) {
	if err := c.ValidateConfig(); err != nil {
		return "", err
	}
	if !tenDigits.MatchString(phone) {
		return "", ErrInvalidPhone
	}

	payload, err := json.Marshal(map[string]string{"type": "text", "text": text})
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("channel", "whatsapp")
	form.Set("source", c.config.SourcePhone)
	form.Set("destination", "91"+phone)
	form.Set("src.name", c.config.AppName)
	form.Set("message", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read whatsapp response: %w", err)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		snippet := string(body)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		utils.ErrorLogger.WithField("body", snippet).Error("Gupshup returned a non-JSON response")
		if strings.Contains(snippet, "Portal Use Only") || strings.Contains(snippet, "Unauthorized") {
			return "", ErrInvalidCredentials
		}
		return "", ErrGatewayConfig
	}

	var out gupshupResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}
	if out.Status != "submitted" {
		msg := out.Message
		if msg == "" {
			msg = "failed to send WhatsApp message"
		}
		return "", fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	return out.MessageID, nil
}

// OTPMessage is the WhatsApp text carrying a login code.
func OTPMessage(restaurant, code string) string {
	if restaurant == "" {
		restaurant = billing.DefaultRestaurantName
	}
	return fmt.Sprintf("🔐 %s - Login OTP\n\n"+
		"Your verification code is:\n\n"+
		"*%s*\n\n"+
		"This code will expire in 5 minutes.\n\n"+
		"Do not share this code with anyone.\n\n"+
		"If you didn't request this, please ignore.", restaurant, code)
}
