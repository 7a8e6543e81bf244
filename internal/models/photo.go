package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowType distinguishes the two tagging surfaces; they carry different
// batch ceilings.
type WorkflowType string

const (
	WorkflowQR    WorkflowType = "qr"
	WorkflowAdmin WorkflowType = "admin"
)

// Photo is a read model over the upload subsystem. Only approved photos may
// be tagged.
type Photo struct {
	ID        uuid.UUID `db:"id" json:"id"`
	EventID   uuid.UUID `db:"event_id" json:"event_id"`
	Filename  string    `db:"filename" json:"filename"`
	Approved  bool      `db:"approved" json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PhotoSubjectAssignment is the tagging edge. A (photo, subject) pair exists
// at most once; re-assignment is an idempotent no-op reported as a duplicate.
type PhotoSubjectAssignment struct {
	PhotoID   uuid.UUID `db:"photo_id" json:"photo_id"`
	SubjectID uuid.UUID `db:"subject_id" json:"subject_id"`
	TaggedAt  time.Time `db:"tagged_at" json:"tagged_at"`
	TaggedBy  string    `db:"tagged_by" json:"tagged_by"`
}

// BatchTagRequest is the batch tagging request body
type BatchTagRequest struct {
	EventID   uuid.UUID   `json:"eventId" binding:"required"`
	PhotoIDs  []uuid.UUID `json:"photoIds" binding:"required"`
	SubjectID uuid.UUID   `json:"subjectId" binding:"required"`
}

// BatchTagResponse is the batch tagging success response
type BatchTagResponse struct {
	Success        bool         `json:"success"`
	AssignedCount  int          `json:"assignedCount"`
	DuplicateCount int          `json:"duplicateCount"`
	WorkflowType   WorkflowType `json:"workflowType"`
}
