package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"code-bounty/internal/log"
)

// CloudTasksAuthMiddleware creates middleware that verifies the static secret sent by Cloud Tasks.
func CloudTasksAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		providedSecret := c.GetHeader("X-Cloud-Tasks-Secret")
		if providedSecret == "" {
			log.Error(ctx, "Missing X-Cloud-Tasks-Secret header for Cloud Tasks request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		if secret == "" || subtle.ConstantTimeCompare([]byte(providedSecret), []byte(secret)) != 1 {
			log.Error(ctx, "Invalid Cloud Tasks secret provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		log.Debug(ctx, "Cloud Tasks authentication successful")
		c.Next()
	}
}
