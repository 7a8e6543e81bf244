package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"go.uber.org/zap"
)

type TokenRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTokenRepository(db *sqlx.DB, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

func (r *TokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	query := `
		INSERT INTO access_tokens (id, scope, resource_id, access_level, can_download, token_prefix, token_hash, salt, max_uses, used_count, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Scope,
		token.ResourceID,
		token.AccessLevel,
		token.CanDownload,
		token.TokenPrefix,
		token.TokenHash,
		token.Salt,
		token.MaxUses,
		token.UsedCount,
		token.ExpiresAt,
		token.CreatedBy,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating access token: %w", err)
	}

	return nil
}

func (r *TokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessToken, error) {
	query := `
		SELECT id, scope, resource_id, access_level, can_download, token_prefix, token_hash, salt, max_uses, used_count, expires_at, revoked_at, last_used_at, created_by, created_at
		FROM access_tokens
		WHERE id = $1`

	var token models.AccessToken
	err := r.db.GetContext(ctx, &token, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting access token: %w", err)
	}

	return &token, nil
}

// FindCandidatesByPrefix returns all tokens whose stored prefix matches the
// presented plaintext slice under any scope tag. The prefix narrows the
// candidate set; it never decides a match on its own.
func (r *TokenRepository) FindCandidatesByPrefix(ctx context.Context, plaintextPrefix string) ([]models.AccessToken, error) {
	query := `
		SELECT id, scope, resource_id, access_level, can_download, token_prefix, token_hash, salt, max_uses, used_count, expires_at, revoked_at, last_used_at, created_by, created_at
		FROM access_tokens
		WHERE token_prefix IN ($1, $2, $3)`

	var tokens []models.AccessToken
	err := r.db.SelectContext(ctx, &tokens, query,
		models.ScopeEvent.PrefixTag()+plaintextPrefix,
		models.ScopeCourse.PrefixTag()+plaintextPrefix,
		models.ScopeFamily.PrefixTag()+plaintextPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("error finding token candidates: %w", err)
	}

	return tokens, nil
}

func (r *TokenRepository) ListByResource(ctx context.Context, scope models.TokenScope, resourceID uuid.UUID) ([]models.AccessToken, error) {
	query := `
		SELECT id, scope, resource_id, access_level, can_download, token_prefix, token_hash, salt, max_uses, used_count, expires_at, revoked_at, last_used_at, created_by, created_at
		FROM access_tokens
		WHERE scope = $1 AND resource_id = $2
		ORDER BY created_at DESC`

	var tokens []models.AccessToken
	err := r.db.SelectContext(ctx, &tokens, query, scope, resourceID)
	if err != nil {
		return nil, fmt.Errorf("error listing access tokens: %w", err)
	}

	return tokens, nil
}

// IncrementUsage bumps used_count and stamps last_used_at. It is best-effort
// bookkeeping performed after the validity decision; the guard keeps the
// counter from passing max_uses under concurrent use.
func (r *TokenRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE access_tokens
		SET used_count = used_count + 1, last_used_at = now()
		WHERE id = $1
		AND revoked_at IS NULL
		AND (max_uses IS NULL OR used_count < max_uses)`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error incrementing token usage: %w", err)
	}

	return nil
}

// Revoke sets revoked_at once. Revoking an already-revoked token is a no-op,
// and revoked_at is never cleared.
func (r *TokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE access_tokens
		SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error revoking access token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either absent or already revoked; distinguish for the caller.
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return models.ErrTokenNotFound
		}
	}

	return nil
}

// DeleteDead removes tokens that have been expired or revoked for longer
// than the retention period. Live tokens are never deleted.
func (r *TokenRepository) DeleteDead(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM access_tokens
		WHERE (revoked_at IS NOT NULL AND revoked_at < $1)
		OR (expires_at IS NOT NULL AND expires_at < $1)`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting dead tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	return n, nil
}
