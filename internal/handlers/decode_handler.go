package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takato23/lookescolar-sub001/internal/middleware"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/services"
)

type DecodeHandler struct {
	qr    *services.QRService
	audit *services.AuditService
}

func NewDecodeHandler(qr *services.QRService, audit *services.AuditService) *DecodeHandler {
	return &DecodeHandler{qr: qr, audit: audit}
}

// Decode resolves a scanned QR payload to a subject. Failure responses never
// include raw tokens or internal identifiers beyond what the caller sent.
func (h *DecodeHandler) Decode(c *gin.Context) {
	var req models.DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR code format"})
		return
	}

	requestID := c.GetString(middleware.RequestIDKey)
	actor := c.ClientIP()

	resolved, err := h.qr.Resolve(c.Request.Context(), req.QRCode)
	if err != nil {
		h.audit.Record(c.Request.Context(), requestID, actor, models.AuditActionQRDecode,
			"denied", map[string]interface{}{"reason": err.Error()})
		h.respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), requestID, actor, models.AuditActionQRDecode,
		"ok", map[string]interface{}{
			"subject": services.MaskToken(resolved.Subject.ID.String()),
			"event":   services.MaskToken(resolved.Event.ID.String()),
		})

	c.JSON(http.StatusOK, models.DecodeResponse{
		Success: true,
		Student: models.DecodedStudent{
			ID:         resolved.Subject.ID,
			Name:       resolved.Subject.Name,
			Grade:      resolved.Subject.Grade,
			EventID:    resolved.Subject.EventID,
			PhotoCount: resolved.PhotoCount,
		},
		Metadata: models.DecodeMetadata{TokenStatus: resolved.TokenStatus},
	})
}

func (h *DecodeHandler) respondError(c *gin.Context, err error) {
	var expired *services.TokenExpiredError
	if errors.As(err, &expired) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Token expired",
			"expires_at": expired.ExpiresAt,
		})
		return
	}

	var mismatch *services.NameMismatchError
	if errors.As(err, &mismatch) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Subject name does not match",
			"expected": mismatch.Expected,
			"provided": mismatch.Provided,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidQRFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR code format"})
	case errors.Is(err, models.ErrSubjectNotFound), errors.Is(err, models.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
	case errors.Is(err, models.ErrEventInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event is not active"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode QR code"})
	}
}
