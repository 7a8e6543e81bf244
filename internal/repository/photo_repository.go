package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"go.uber.org/zap"
)

type PhotoRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPhotoRepository(db *sqlx.DB, logger *zap.Logger) *PhotoRepository {
	return &PhotoRepository{db: db, logger: logger}
}

func (r *PhotoRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	query := `
		SELECT id, event_id, filename, approved, created_at
		FROM photos
		WHERE id = ANY($1)`

	var photos []models.Photo
	err := r.db.SelectContext(ctx, &photos, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error getting photos: %w", err)
	}

	return photos, nil
}

// AssignBatch inserts (photo, subject) pairs inside one transaction. The
// primary key on photo_subjects absorbs duplicates: an insert that collides
// with an existing pair is skipped, not an error, so concurrent attempts on
// the same pair leave exactly one stored edge. Returns how many new edges
// were created.
func (r *PhotoRepository) AssignBatch(ctx context.Context, subjectID uuid.UUID, photoIDs []uuid.UUID, taggedBy string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting assignment transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO photo_subjects (photo_id, subject_id, tagged_at, tagged_by)
		SELECT unnest($1::uuid[]), $2, now(), $3
		ON CONFLICT (photo_id, subject_id) DO NOTHING`

	result, err := tx.ExecContext(ctx, query, pq.Array(photoIDs), subjectID, taggedBy)
	if err != nil {
		return 0, fmt.Errorf("error inserting assignments: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing assignment transaction: %w", err)
	}

	return int(inserted), nil
}

func (r *PhotoRepository) ListAssignments(ctx context.Context, subjectID uuid.UUID) ([]models.PhotoSubjectAssignment, error) {
	query := `
		SELECT photo_id, subject_id, tagged_at, tagged_by
		FROM photo_subjects
		WHERE subject_id = $1
		ORDER BY tagged_at`

	var assignments []models.PhotoSubjectAssignment
	err := r.db.SelectContext(ctx, &assignments, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("error listing assignments: %w", err)
	}

	return assignments, nil
}

