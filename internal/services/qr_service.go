package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const qrFieldCount = 4

// TokenExpiredError carries the expiry timestamp as a recovery hint. It is
// safe to surface; it contains no secret.
type TokenExpiredError struct {
	ExpiresAt time.Time
}

func (e *TokenExpiredError) Error() string { return models.ErrTokenExpired.Error() }

func (e *TokenExpiredError) Unwrap() error { return models.ErrTokenExpired }

// NameMismatchError reports the stored (canonical) and provided names for
// debugging. Both were already known to the caller or are non-secret.
type NameMismatchError struct {
	Expected string
	Provided string
}

func (e *NameMismatchError) Error() string { return models.ErrNameMismatch.Error() }

func (e *NameMismatchError) Unwrap() error { return models.ErrNameMismatch }

// QRPayload is the decoded content of a student QR code.
type QRPayload struct {
	SubjectID   uuid.UUID
	SubjectName string
	EventID     uuid.UUID
}

// QRService encodes and decodes the student QR payload format and resolves
// payloads against the subject read model.
type QRService struct {
	subjects *repository.SubjectRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewQRService(subjects *repository.SubjectRepository, logger *zap.Logger) *QRService {
	return &QRService{
		subjects: subjects,
		logger:   logger,
		now:      time.Now,
	}
}

// Encode renders the wire format: STUDENT:<subjectId>:<subjectName>:<eventId>.
func (s *QRService) Encode(subject *models.Subject) string {
	return fmt.Sprintf("STUDENT:%s:%s:%s", subject.ID, subject.Name, subject.EventID)
}

// Decode parses and structurally validates a QR payload. It runs before any
// database access; malformed input never reaches storage.
func (s *QRService) Decode(payload string) (*QRPayload, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != qrFieldCount {
		return nil, models.ErrInvalidQRFormat
	}
	if parts[0] != "STUDENT" {
		return nil, models.ErrInvalidQRFormat
	}
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) == "" {
			return nil, models.ErrInvalidQRFormat
		}
	}

	subjectID, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, models.ErrInvalidQRFormat
	}
	eventID, err := uuid.Parse(parts[3])
	if err != nil {
		return nil, models.ErrInvalidQRFormat
	}

	return &QRPayload{
		SubjectID:   subjectID,
		SubjectName: parts[2],
		EventID:     eventID,
	}, nil
}

// ReconcileName compares a provided name against the stored one. Exact match
// wins; otherwise both sides are folded (NFD, combining marks stripped, case
// folded) so "Perez" reconciles with "Pérez". The stored name is canonical
// in every response; the provided one never propagates.
func ReconcileName(provided, stored string) bool {
	if provided == stored {
		return true
	}
	return foldName(provided) == foldName(stored)
}

func foldName(s string) string {
	t := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue // remove accent marks
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}

// ResolvedSubject is the outcome of resolving a QR payload.
type ResolvedSubject struct {
	Subject    *models.Subject
	Event      *models.SchoolEvent
	PhotoCount int
	// TokenStatus describes the subject's token expiry state for the
	// response metadata, already masked.
	TokenStatus string
}

// Resolve runs the full decode flow: structural validation, subject lookup,
// event-active check, subject token expiry, name reconciliation. Checks run
// in that order and the first failure wins.
func (s *QRService) Resolve(ctx context.Context, rawPayload string) (*ResolvedSubject, error) {
	payload, err := s.Decode(rawPayload)
	if err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, payload.SubjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, models.ErrSubjectNotFound
	}
	if subject.EventID != payload.EventID {
		// The payload names a different event than the subject belongs to.
		return nil, models.ErrSubjectNotFound
	}

	event, err := s.subjects.GetEventByID(ctx, subject.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, models.ErrEventNotFound
	}
	if !event.Active {
		return nil, models.ErrEventInactive
	}

	if subject.TokenExpiresAt != nil && !subject.TokenExpiresAt.After(s.now()) {
		return nil, &TokenExpiredError{ExpiresAt: *subject.TokenExpiresAt}
	}

	if !ReconcileName(payload.SubjectName, subject.Name) {
		return nil, &NameMismatchError{Expected: subject.Name, Provided: payload.SubjectName}
	}

	count, err := s.subjects.CountTaggedPhotos(ctx, subject.ID)
	if err != nil {
		return nil, err
	}

	status := string(models.TokenStatusActive)
	return &ResolvedSubject{
		Subject:     subject,
		Event:       event,
		PhotoCount:  count,
		TokenStatus: fmt.Sprintf("%s:%s", MaskToken(subject.ID.String()), status),
	}, nil
}
