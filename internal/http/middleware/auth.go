// README: Bearer-token auth middleware; stores the caller as a types.Actor in the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleetrent/internal/infra"
	"fleetrent/internal/types"
)

const (
	ctxKeyUID  = "caller_uid"
	ctxKeyRole = "caller_role"
)

// Auth rejects requests without a valid bearer token. Tokens without a role
// claim are treated as customers.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || tok == nil || tok.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role := types.Role(tok.Role())
		switch role {
		case types.RoleCustomer, types.RoleStaff, types.RoleAdmin:
		default:
			role = types.RoleCustomer
		}
		c.Set(ctxKeyUID, tok.UID)
		c.Set(ctxKeyRole, string(role))
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}

// Actor is the explicit caller identity handed to service commands.
func Actor(c *gin.Context) types.Actor {
	return types.Actor{ID: types.ID(CallerUID(c)), Role: types.Role(CallerRole(c))}
}

// RequireRole must run after Auth.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := types.Role(CallerRole(c))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
