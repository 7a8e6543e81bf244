package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takato23/lookescolar-sub001/internal/models"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusForError maps domain errors to HTTP status codes. Internal detail
// (SQL text, stack traces) never reaches the response.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidQRFormat),
		errors.Is(err, models.ErrEventInactive),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrNameMismatch),
		errors.Is(err, models.ErrEmptyBatch),
		errors.Is(err, models.ErrBatchTooLarge),
		errors.Is(err, models.ErrUnapprovedPhotos),
		errors.Is(err, models.ErrCrossEventPhotos),
		errors.Is(err, models.ErrCrossEventSubject),
		errors.Is(err, models.ErrScopeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSubjectNotFound),
		errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTokenRevoked),
		errors.Is(err, models.ErrTokenExhausted):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler is a middleware that handles errors in a centralized way
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			status := StatusForError(err)

			msg := err.Error()
			if status == http.StatusInternalServerError {
				// Internal errors keep their detail in the logs only.
				msg = "Internal server error"
			}

			c.JSON(status, ErrorResponse{Error: msg})
		}
	}
}
