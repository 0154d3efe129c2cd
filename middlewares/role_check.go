package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/utils"
)

// RequireRoles allows the request only when the caller has one of roles.
// It must run after AuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}

		if _, ok := allowed[role]; !ok {
			utils.RespondError(c, http.StatusForbidden, errors.New("you do not have permission to access this resource"))
			c.Abort()
			return
		}

		c.Next()
	}
}
