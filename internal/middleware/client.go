package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"code-bounty/internal/apperror"
	"code-bounty/internal/client"
	"code-bounty/internal/identity"
	"code-bounty/internal/log"
)

const clientKey = "client"

// ClientMiddleware gives every request its own client.Client. A bearer token,
// when present, must restore a session; requests without one stay signed out.
// Only a rejected credential answers 401; a backend failure while checking the
// token answers 502.
func ClientMiddleware(deps client.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cl := client.New(deps)
		defer cl.Close()

		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			principal, err := cl.Auth.Restore(ctx, token)
			if err != nil {
				abortRestore(c, err)
				return
			}
			c.Request = c.Request.WithContext(log.WithPrincipal(ctx, principal.UID, ""))
		}

		c.Set(clientKey, cl)
		c.Next()
	}
}

func abortRestore(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if isRejectedCredential(err) {
		log.Warn(ctx, "Rejected session token", "error", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthenticated",
			"message": "Your session has expired. Please sign in again.",
		})
		return
	}

	appErr := apperror.Backend(err, "")
	log.Error(ctx, "Failed to restore session",
		"error", err,
		"operation", "restore_session",
	)
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
		"error":   appErr.Kind(),
		"message": appErr.Message,
	})
}

func isRejectedCredential(err error) bool {
	return errors.Is(err, identity.ErrInvalidToken) ||
		errors.Is(err, identity.ErrTokenExpired) ||
		errors.Is(err, identity.ErrUserNotFound)
}

// ClientFrom returns the request's client. It panics when ClientMiddleware is not installed.
func ClientFrom(c *gin.Context) *client.Client {
	return c.MustGet(clientKey).(*client.Client)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
