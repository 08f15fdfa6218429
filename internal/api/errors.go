package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/lifecycle"
	"github.com/opsdesk-api/internal/service"
	"github.com/opsdesk-api/internal/validation"
)

// respondError maps service errors to HTTP statuses. Unclassified errors
// come from the store and are passed through as-is.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, lifecycle.ErrEndBeforeStart):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	c.JSON(status, gin.H{"error": clientMessage(err)})
}

// clientMessage strips the sentinel prefix of validation errors
func clientMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, service.ErrValidation) {
		msg = strings.TrimPrefix(msg, service.ErrValidation.Error()+": ")
	}
	return msg
}

// respondBindError reports request binding problems per field
func respondBindError(c *gin.Context, err error) {
	errs := validation.Errors(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   validation.Message(errs),
		"details": errs,
	})
}
