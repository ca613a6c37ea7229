package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/apperr"
	"github.com/motivohq/motivo-server/internal/models"
)

// RequireRole rejects requests whose resolved user's role is not in the
// allowed set. Pure predicate: no side effects, no store access. Must run
// after Authenticate.
func RequireRole(allowed ...models.Role) gin.HandlerFunc {
	allowedSet := make(map[models.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apperr.Abort(c, apperr.AuthRequired("authentication required"))
			return
		}
		if _, permitted := allowedSet[user.Role]; !permitted {
			apperr.Abort(c, apperr.PermissionDenied())
			return
		}
		c.Next()
	}
}
