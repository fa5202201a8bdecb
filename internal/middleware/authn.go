package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
)

const principalKey = "user_id"

// TokenVerifier resolves a bearer token to the user it was issued for.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthenticated",
		"message": message,
	})
}

// Authenticate rejects requests without a valid bearer token and stores the
// principal for the handlers.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "Authorization header is required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthenticated(c, "Authorization header must use Bearer token")
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		principal, err := verifier.Verify(tokenStr)
		if err != nil {
			log.WithError(err).WithField("path", c.FullPath()).Debug("token rejected")
			abortUnauthenticated(c, "Token validation failed")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// Principal returns the authenticated user id set by Authenticate.
func Principal(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return uuid.Nil, false
	}
	principal, ok := value.(uuid.UUID)
	return principal, ok && principal != uuid.Nil
}
