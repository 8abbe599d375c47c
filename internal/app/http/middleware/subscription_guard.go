package middleware

import (
	"context"
	"net/http"
	"time"

	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/access"
	"chilljobs-api/internal/domain/users"

	"github.com/gin-gonic/gin"
)

const policyKey = "access_policy"

type userGetter interface {
	GetUserByID(ctx context.Context, id string) (*users.User, error)
}

// ResolvePolicy computes the caller's access policy from the stored
// entitlement, not from the token, so an upgrade applies without a re-login.
// Anonymous callers get the anonymous policy.
func ResolvePolicy(store userGetter, enforceExpiry bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := access.AnonymousPolicy()
		if claims, ok := ClaimsFrom(c); ok {
			u, err := store.GetUserByID(c.Request.Context(), claims.UserID)
			switch {
			case err == nil:
				policy = access.ComputePolicy(time.Now(), *u, enforceExpiry)
			case apperr.Is(err, apperr.NotFound):
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load entitlement"})
				return
			}
		}
		SetPolicy(c, policy)
		c.Next()
	}
}

func SetPolicy(c *gin.Context, p access.Policy) {
	c.Set(policyKey, p)
}

func PolicyFrom(c *gin.Context) access.Policy {
	if v, ok := c.Get(policyKey); ok {
		if p, ok := v.(access.Policy); ok {
			return p
		}
	}
	return access.AnonymousPolicy()
}

// RequirePro must run after ResolvePolicy.
func RequirePro() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PolicyFrom(c).State != access.AccessPro {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Pro subscription required",
			})
			return
		}
		c.Next()
	}
}
