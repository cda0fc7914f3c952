package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"code-bounty/internal/apperror"
	"code-bounty/internal/log"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`   // kind, e.g. "not_found"
	Message string `json:"message"` // shown to the user
	Field   string `json:"field,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperror.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		log.Error(c.Request.Context(), "Unclassified error reached the API",
			"error", err,
			"path", c.FullPath(),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	c.JSON(statusFor(appErr), ErrorResponse{
		Error:   appErr.Kind(),
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation",
		Message: "Invalid request body: " + err.Error(),
	})
}
