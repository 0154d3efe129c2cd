package services

import "errors"

var (
	ErrNotConfigured      = errors.New("delivery channel is not configured")
	ErrInvalidPhone       = errors.New("invalid phone number format, must be 10 digits")
	ErrInvalidCredentials = errors.New("invalid messaging API credentials")
	ErrGatewayConfig      = errors.New("messaging gateway configuration error")
	ErrRejected           = errors.New("message rejected by provider")
)
