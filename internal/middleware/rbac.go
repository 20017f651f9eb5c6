package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/siscuentas/radicados-api/internal/models"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
	"github.com/siscuentas/radicados-api/pkg/response"
)

// RequireRoles enforces role-based access for a route. ADMIN always
// passes; services still perform the finer checks (custody, original
// filer) that depend on the target document.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if claims.IsAdmin() {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
