package models

import (
	"time"

	"github.com/google/uuid"
)

// SchoolEvent is a photography session at a school. Inactive events reject
// all QR decode and tagging traffic.
type SchoolEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	School    string    `db:"school" json:"school"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject is a student (or family) identity within exactly one event.
// Cross-event references are rejected everywhere.
type Subject struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	EventID        uuid.UUID  `db:"event_id" json:"event_id"`
	CourseID       *uuid.UUID `db:"course_id" json:"course_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	Grade          string     `db:"grade" json:"grade"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// DecodeRequest is the QR decode request body
type DecodeRequest struct {
	QRCode string `json:"qrCode" binding:"required"`
}

// DecodedStudent is the public shape of a resolved subject
type DecodedStudent struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Grade      string    `json:"grade"`
	EventID    uuid.UUID `json:"eventId"`
	PhotoCount int       `json:"photoCount"`
}

// DecodeResponse is the QR decode success response
type DecodeResponse struct {
	Success  bool           `json:"success"`
	Student  DecodedStudent `json:"student"`
	Metadata DecodeMetadata `json:"metadata"`
}

// DecodeMetadata carries non-sensitive token state. TokenStatus is always a
// masked identifier plus lifecycle state, never a raw token.
type DecodeMetadata struct {
	TokenStatus string `json:"tokenStatus"`
}
