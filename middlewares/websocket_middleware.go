package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/utils"
)

// WebSocketAuthMiddleware reads the access token from the query string since
// browsers cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil || claims.Purpose != utils.PurposeAccess {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		setClaims(c, token, claims)
		c.Next()
	}
}
