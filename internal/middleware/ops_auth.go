package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	apperrors "rwatoken/internal/errors"
)

// OpsAuthMiddleware creates a Gin middleware that checks the X-API-Key
// header against the bcrypt hash of the operator key. Only the hash is
// configured, so the key itself never sits in the environment.
func OpsAuthMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrNotConfigured, "Operator endpoints are not configured"))
			return
		}
		key := c.GetHeader("X-API-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
