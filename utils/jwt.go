package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeAccess   = "access"
	PurposePINReset = "pin_reset"

	tokenIssuer = "AiCavalli"
	// used only when JWT_SECRET is unset
	devSecret = "cavalli-dev-secret"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")

	jwtMu     sync.RWMutex
	jwtSecret = []byte(devSecret)
	tokenTTL  = 24 * time.Hour
)

type CustomClaims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// InitJWT sets the signing secret and access token lifetime.
func InitJWT(secret string, ttl time.Duration) {
	jwtMu.Lock()
	defer jwtMu.Unlock()

	if secret == "" {
		InfoLogger.Warn("JWT_SECRET not set, using development secret")
		secret = devSecret
	}
	jwtSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func signingKey() []byte {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtSecret
}

func accessTTL() time.Duration {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return tokenTTL
}

func signClaims(userID, role, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// GenerateToken issues an access token for the user.
func GenerateToken(userID, role string) (string, error) {
	return signClaims(userID, role, PurposeAccess, accessTTL())
}

// GenerateResetToken issues a short lived token that can only reset a PIN.
func GenerateResetToken(userID string, ttl time.Duration) (string, error) {
	return signClaims(userID, "", PurposePINReset, ttl)
}

// ParseToken validates signature, expiry and revocation.
func ParseToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, ErrTokenRevoked
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return signingKey(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
