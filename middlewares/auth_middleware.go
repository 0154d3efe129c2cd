package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/utils"
)

// Context keys set by the auth middlewares.
const (
	CtxUserID = "userID"
	CtxRole   = "role"
	CtxToken  = "token"
	CtxClaims = "claims"
)

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func setClaims(c *gin.Context, token string, claims *utils.CustomClaims) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxToken, token)
	c.Set(CtxClaims, claims)
}

// AuthMiddleware requires a valid access token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}
		if claims.Purpose != utils.PurposeAccess {
			utils.RespondError(c, http.StatusUnauthorized, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		setClaims(c, tokenString, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller identity when a valid token is present
// and lets anonymous requests through otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := utils.ParseToken(tokenString); err == nil && claims.Purpose == utils.PurposeAccess {
				setClaims(c, tokenString, claims)
			}
		}
		c.Next()
	}
}
