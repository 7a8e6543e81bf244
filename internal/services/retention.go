package services

import (
	"context"
	"time"

	"github.com/takato23/lookescolar-sub001/internal/repository"
	"go.uber.org/zap"
)

// RetentionService periodically deletes tokens that have been expired or
// revoked past the retention period, and audit rows past theirs. Live
// tokens and recent audit history are never touched.
type RetentionService struct {
	tokens          *repository.TokenRepository
	audit           *repository.AuditRepository
	tokenRetention  time.Duration
	auditRetention  time.Duration
	cleanupInterval time.Duration
	logger          *zap.Logger
}

func NewRetentionService(tokens *repository.TokenRepository, audit *repository.AuditRepository, tokenRetention, auditRetention, cleanupInterval time.Duration, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		tokens:          tokens,
		audit:           audit,
		tokenRetention:  tokenRetention,
		auditRetention:  auditRetention,
		cleanupInterval: cleanupInterval,
		logger:          logger,
	}
}

// Run starts the cleanup loop and blocks until the context is cancelled.
func (s *RetentionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Cleanup(ctx); err != nil {
				s.logger.Error("retention cleanup failed", zap.Error(err))
			}
		}
	}
}

// Cleanup performs one retention pass.
func (s *RetentionService) Cleanup(ctx context.Context) error {
	now := time.Now()

	deletedTokens, err := s.tokens.DeleteDead(ctx, now.Add(-s.tokenRetention))
	if err != nil {
		return err
	}

	deletedAudit, err := s.audit.DeleteBefore(ctx, now.Add(-s.auditRetention))
	if err != nil {
		return err
	}

	if deletedTokens > 0 || deletedAudit > 0 {
		s.logger.Info("retention cleanup",
			zap.Int64("tokens_deleted", deletedTokens),
			zap.Int64("audit_deleted", deletedAudit))
	}

	return nil
}
