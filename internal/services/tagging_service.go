package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"go.uber.org/zap"
)

// BatchLimits are the hard batch ceilings per workflow.
type BatchLimits struct {
	QR    int
	Admin int
}

// BatchError carries the counts a caller needs to recover from a rejected
// batch without exposing anything beyond what it already supplied.
type BatchError struct {
	Err           error
	Limit         int
	UnapprovedCnt int
	ExpectedCnt   int
	FoundCnt      int
}

func (e *BatchError) Error() string { return e.Err.Error() }

func (e *BatchError) Unwrap() error { return e.Err }

// TaggingService assigns batches of photos to a subject. Validation runs in
// full before any mutation; a batch either fails validation untouched or has
// all its non-duplicate pairs created.
type TaggingService struct {
	subjects *repository.SubjectRepository
	photos   *repository.PhotoRepository
	limits   BatchLimits
	logger   *zap.Logger
}

func NewTaggingService(subjects *repository.SubjectRepository, photos *repository.PhotoRepository, limits BatchLimits, logger *zap.Logger) *TaggingService {
	return &TaggingService{
		subjects: subjects,
		photos:   photos,
		limits:   limits,
		logger:   logger,
	}
}

func (s *TaggingService) limitFor(workflow models.WorkflowType) int {
	if workflow == models.WorkflowAdmin {
		return s.limits.Admin
	}
	return s.limits.QR
}

// Assign tags every photo in the batch to the subject. Duplicate pairs are
// counted and skipped, never errors: assigned + duplicates always equals the
// batch size on success.
func (s *TaggingService) Assign(ctx context.Context, eventID, subjectID uuid.UUID, photoIDs []uuid.UUID, workflow models.WorkflowType, actor string) (*models.BatchTagResponse, error) {
	if len(photoIDs) == 0 {
		return nil, &BatchError{Err: models.ErrEmptyBatch}
	}
	limit := s.limitFor(workflow)
	if len(photoIDs) > limit {
		return nil, &BatchError{Err: models.ErrBatchTooLarge, Limit: limit, FoundCnt: len(photoIDs)}
	}

	// Deduplicate the request itself so repeated ids do not double-count.
	unique := make([]uuid.UUID, 0, len(photoIDs))
	seen := make(map[uuid.UUID]bool, len(photoIDs))
	for _, id := range photoIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, models.ErrSubjectNotFound
	}
	if subject.EventID != eventID {
		return nil, &BatchError{Err: models.ErrCrossEventSubject}
	}

	photos, err := s.photos.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	inEvent := 0
	unapproved := 0
	for _, p := range photos {
		if p.EventID != eventID {
			continue
		}
		inEvent++
		if !p.Approved {
			unapproved++
		}
	}
	if inEvent != len(unique) {
		return nil, &BatchError{
			Err:         models.ErrCrossEventPhotos,
			ExpectedCnt: len(unique),
			FoundCnt:    inEvent,
		}
	}
	if unapproved > 0 {
		return nil, &BatchError{Err: models.ErrUnapprovedPhotos, UnapprovedCnt: unapproved}
	}

	assigned, err := s.photos.AssignBatch(ctx, subjectID, unique, actor)
	if err != nil {
		return nil, fmt.Errorf("error assigning batch: %w", err)
	}

	resp := &models.BatchTagResponse{
		Success:        true,
		AssignedCount:  assigned,
		DuplicateCount: len(unique) - assigned,
		WorkflowType:   workflow,
	}

	s.logger.Info("batch tagged",
		zap.String("subject_id", subjectID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("workflow", string(workflow)),
		zap.Int("assigned", resp.AssignedCount),
		zap.Int("duplicates", resp.DuplicateCount))

	return resp, nil
}
