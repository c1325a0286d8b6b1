package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(models.Role)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePresenter allows only roles that may run live questions.
func RequirePresenter() gin.HandlerFunc {
	return RequireRole(models.RoleTrainer, models.RoleManager, models.RoleAdmin)
}
