package middleware

import (
	"net/http"

	"sessionbook/models"
	"sessionbook/utils"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only for the listed roles. Must run after ActorAuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Missing caller identity", nil)
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		utils.JSONError(c, http.StatusForbidden, "permission_denied", "Role not allowed on this route",
			map[string]string{"role": string(actor.Role)})
	}
}
