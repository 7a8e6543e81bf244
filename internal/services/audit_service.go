package services

import (
	"context"
	"encoding/json"

	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"go.uber.org/zap"
)

// AuditService records token and tagging activity. Writes are best-effort: a
// failed audit insert is logged and swallowed so it never blocks or fails
// the primary operation.
type AuditService struct {
	audit  *repository.AuditRepository
	logger *zap.Logger
}

func NewAuditService(audit *repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{audit: audit, logger: logger}
}

// Record appends one audit entry. Detail values must already be masked.
func (s *AuditService) Record(ctx context.Context, requestID, actor, action, outcome string, detail map[string]interface{}) {
	var raw json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			s.logger.Warn("failed to marshal audit detail", zap.Error(err))
		} else {
			raw = b
		}
	}

	entry := &models.AuditEntry{
		RequestID: requestID,
		Actor:     actor,
		Action:    action,
		Outcome:   outcome,
		Detail:    raw,
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
