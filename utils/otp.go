package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	OTPLength = 6
	// same cost the PIN hashes use
	hashCost = 10
)

var (
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pinPattern   = regexp.MustCompile(`^\d{6,}$`)
)

// GenerateOTP returns a uniformly random six digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashSecret bcrypt-hashes an OTP code or PIN.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret compares a plain OTP code or PIN with its hash.
func CheckSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func ValidateOTPFormat(code string) bool {
	return otpPattern.MatchString(code)
}

func IsValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
