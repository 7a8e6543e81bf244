package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"go.uber.org/zap"
)

// SubjectRepository is the read model over subjects and their events. The
// admin CRUD that populates these tables lives in an external system; only
// what the decode and tagging flows need is exposed here.
type SubjectRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSubjectRepository(db *sqlx.DB, logger *zap.Logger) *SubjectRepository {
	return &SubjectRepository{db: db, logger: logger}
}

func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	query := `
		SELECT id, event_id, course_id, name, grade, token_expires_at, created_at
		FROM subjects
		WHERE id = $1`

	var subject models.Subject
	err := r.db.GetContext(ctx, &subject, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting subject: %w", err)
	}

	return &subject, nil
}

func (r *SubjectRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*models.SchoolEvent, error) {
	query := `
		SELECT id, name, school, active, created_at
		FROM events
		WHERE id = $1`

	var event models.SchoolEvent
	err := r.db.GetContext(ctx, &event, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting event: %w", err)
	}

	return &event, nil
}

// CountTaggedPhotos returns how many photos are assigned to the subject.
func (r *SubjectRepository) CountTaggedPhotos(ctx context.Context, subjectID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM photo_subjects WHERE subject_id = $1`, subjectID)
	if err != nil {
		return 0, fmt.Errorf("error counting tagged photos: %w", err)
	}
	return count, nil
}
