package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger returns a middleware that logs requests using logrus
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()

		// Process request
		c.Next()

		// Calculate duration
		duration := time.Since(start)

		fields := logrus.Fields{
			"status":     strconv.Itoa(c.Writer.Status()),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"duration":   duration.String(),
			"user_agent": c.Request.UserAgent(),
		}

		// Add request ID if available
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields["request_id"] = requestID
		}

		// Add error if present
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		// Log with appropriate level based on status code.
		// Request and response bodies are never logged on this service;
		// they can carry token plaintext.
		statusCode := c.Writer.Status()
		switch {
		case statusCode >= 500:
			log.WithFields(fields).Error("Server error")
		case statusCode >= 400:
			log.WithFields(fields).Warn("Client error")
		default:
			log.WithFields(fields).Info("Success")
		}
	}
}
