package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"go.uber.org/zap"
)

// AuditRepository persists append-only audit entries. Rows are never updated.
type AuditRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAuditRepository(db *sqlx.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (request_id, actor, action, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, query,
		entry.RequestID,
		entry.Actor,
		entry.Action,
		entry.Outcome,
		entry.Detail,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("error appending audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepository) ListByRequestID(ctx context.Context, requestID string) ([]models.AuditEntry, error) {
	query := `
		SELECT id, request_id, actor, action, outcome, detail, created_at
		FROM audit_log
		WHERE request_id = $1
		ORDER BY id`

	var entries []models.AuditEntry
	err := r.db.SelectContext(ctx, &entries, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("error listing audit entries: %w", err)
	}

	return entries, nil
}

// DeleteBefore drops audit rows older than the cutoff (retention only).
func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old audit entries: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	return n, nil
}
