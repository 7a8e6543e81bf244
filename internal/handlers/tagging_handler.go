package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/takato23/lookescolar-sub001/internal/middleware"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/services"
)

// taggingTimeout bounds a batch-tag request end to end. A timed-out request
// either committed its transaction or left nothing behind.
const taggingTimeout = 5 * time.Second

type TaggingHandler struct {
	tagger *services.TaggingService
	audit  *services.AuditService
}

func NewTaggingHandler(tagger *services.TaggingService, audit *services.AuditService) *TaggingHandler {
	return &TaggingHandler{tagger: tagger, audit: audit}
}

// TagQR handles batch tagging from the QR scanning workflow.
func (h *TaggingHandler) TagQR(c *gin.Context) {
	h.tag(c, models.WorkflowQR, c.ClientIP())
}

// TagAdmin handles batch tagging from the staff workflow; it runs behind
// staff auth and carries the larger ceiling.
func (h *TaggingHandler) TagAdmin(c *gin.Context) {
	actor := c.GetString(middleware.StaffSubjectKey)
	if actor == "" {
		actor = c.ClientIP()
	}
	h.tag(c, models.WorkflowAdmin, actor)
}

func (h *TaggingHandler) tag(c *gin.Context, workflow models.WorkflowType, actor string) {
	var req models.BatchTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), taggingTimeout)
	defer cancel()

	requestID := c.GetString(middleware.RequestIDKey)

	resp, err := h.tagger.Assign(ctx, req.EventID, req.SubjectID, req.PhotoIDs, workflow, actor)
	if err != nil {
		h.audit.Record(c.Request.Context(), requestID, actor, models.AuditActionBatchTag,
			"denied", map[string]interface{}{
				"reason":   err.Error(),
				"subject":  services.MaskToken(req.SubjectID.String()),
				"workflow": string(workflow),
			})
		h.respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), requestID, actor, models.AuditActionBatchTag,
		"ok", map[string]interface{}{
			"subject":    services.MaskToken(req.SubjectID.String()),
			"workflow":   string(workflow),
			"assigned":   resp.AssignedCount,
			"duplicates": resp.DuplicateCount,
		})

	c.JSON(http.StatusOK, resp)
}

func (h *TaggingHandler) respondError(c *gin.Context, err error) {
	var batchErr *services.BatchError
	if errors.As(err, &batchErr) {
		switch {
		case errors.Is(err, models.ErrEmptyBatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Photo batch is empty"})
		case errors.Is(err, models.ErrBatchTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Photo batch exceeds the allowed size",
				"limit": batchErr.Limit,
				"found": batchErr.FoundCnt,
			})
		case errors.Is(err, models.ErrUnapprovedPhotos):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Batch contains unapproved photos",
				"unapproved": batchErr.UnapprovedCnt,
			})
		case errors.Is(err, models.ErrCrossEventPhotos):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Photos do not belong to the event",
				"expected": batchErr.ExpectedCnt,
				"found":    batchErr.FoundCnt,
			})
		case errors.Is(err, models.ErrCrossEventSubject):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Subject does not belong to the event"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	if errors.Is(err, models.ErrSubjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Tagging request timed out"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to tag photos"})
}
