package middleware

import (
	"net/http"
	"strings"

	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/session"

	"github.com/gin-gonic/gin"
)

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", apperr.New(apperr.Authentication, "Authorization header missing")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
		return "", apperr.New(apperr.Authentication, "Bearer token malformed")
	}
	return strings.TrimSpace(tokenString), nil
}

func setClaims(c *gin.Context, claims *session.Claims) {
	c.Set(session.ContextKey, claims)
	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
}

// ClaimsFrom returns the session claims placed by AuthMiddleware or
// OptionalAuth.
func ClaimsFrom(c *gin.Context) (*session.Claims, bool) {
	v, ok := c.Get(session.ContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*session.Claims)
	return claims, ok && claims != nil
}

func AuthMiddleware(iss *session.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !iss.Configured() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "AUTH_SECRET not configured"})
			return
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(err)})
			return
		}
		claims, err := iss.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(apperr.KindOf(err).Status(), gin.H{"error": apperr.Message(err)})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and lets
// anonymous requests through untouched.
func OptionalAuth(iss *session.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if iss.Configured() {
			if tokenString, err := bearerToken(c); err == nil {
				if claims, err := iss.Parse(tokenString); err == nil {
					setClaims(c, claims)
				}
			}
		}
		c.Next()
	}
}
