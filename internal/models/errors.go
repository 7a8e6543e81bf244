package models

import "errors"

var (
	// Format errors are rejected before any I/O.
	ErrInvalidQRFormat = errors.New("invalid QR code format")

	ErrSubjectNotFound = errors.New("subject not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrEventInactive   = errors.New("event is not active")
	ErrTokenNotFound   = errors.New("token not found")

	// Token lifecycle terminal states.
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrTokenExhausted = errors.New("token usage limit reached")

	ErrScopeMismatch = errors.New("token scope does not cover this resource")
	ErrNameMismatch  = errors.New("subject name does not match")

	ErrEmptyBatch        = errors.New("photo batch is empty")
	ErrBatchTooLarge     = errors.New("photo batch exceeds the allowed size")
	ErrUnapprovedPhotos  = errors.New("batch contains unapproved photos")
	ErrCrossEventPhotos  = errors.New("photos do not belong to the event")
	ErrCrossEventSubject = errors.New("subject does not belong to the event")

	ErrRateLimited = errors.New("rate limit exceeded")
)
