package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/response"
)

// RequireRoles admits only sessions whose role is listed. It must run after JWT.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not allowed"))
			c.Abort()
			return
		}
		c.Next()
	}
}
