package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenScope represents the category of resource a token grants access to
type TokenScope string

const (
	ScopeEvent  TokenScope = "event"
	ScopeCourse TokenScope = "course"
	ScopeFamily TokenScope = "family"
)

// PrefixTag returns the one-letter tag embedded in the token prefix
func (s TokenScope) PrefixTag() string {
	switch s {
	case ScopeEvent:
		return "e"
	case ScopeCourse:
		return "c"
	case ScopeFamily:
		return "f"
	}
	return "?"
}

// Valid reports whether the scope is one of the known values
func (s TokenScope) Valid() bool {
	switch s {
	case ScopeEvent, ScopeCourse, ScopeFamily:
		return true
	}
	return false
}

// AccessLevel represents the access level of a token
type AccessLevel string

const (
	AccessLevelFull     AccessLevel = "full"
	AccessLevelReadOnly AccessLevel = "read_only"
)

// TokenStatus is the lifecycle state of a token at evaluation time
type TokenStatus string

const (
	TokenStatusActive    TokenStatus = "active"
	TokenStatusExpired   TokenStatus = "expired"
	TokenStatusRevoked   TokenStatus = "revoked"
	TokenStatusExhausted TokenStatus = "exhausted"
	// TokenStatusNotFound is internal only; externally it is
	// indistinguishable from the other invalid outcomes.
	TokenStatusNotFound TokenStatus = "not_found"
)

// AccessToken is the stored form of a scoped access token. The plaintext
// token is never persisted; only the salted hash and the lookup prefix are.
// The prefix is a non-secret optimization that narrows the candidate set
// before hash comparison. It is not a capability boundary.
type AccessToken struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Scope       TokenScope  `db:"scope" json:"scope"`
	ResourceID  uuid.UUID   `db:"resource_id" json:"resource_id"`
	AccessLevel AccessLevel `db:"access_level" json:"access_level"`
	CanDownload bool        `db:"can_download" json:"can_download"`
	TokenPrefix string      `db:"token_prefix" json:"token_prefix"`
	TokenHash   string      `db:"token_hash" json:"-"`
	Salt        string      `db:"salt" json:"-"`
	MaxUses     *int        `db:"max_uses" json:"max_uses,omitempty"`
	UsedCount   int         `db:"used_count" json:"used_count"`
	ExpiresAt   *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	RevokedAt   *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time  `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Status evaluates the lifecycle state of the token at time now. Validity is
// a pure function of the stored fields; it is never cached.
func (t *AccessToken) Status(now time.Time) TokenStatus {
	if t.RevokedAt != nil {
		return TokenStatusRevoked
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return TokenStatusExpired
	}
	if t.MaxUses != nil && t.UsedCount >= *t.MaxUses {
		return TokenStatusExhausted
	}
	return TokenStatusActive
}

// IssueTokenRequest is the request to issue a new access token
type IssueTokenRequest struct {
	Scope       TokenScope  `json:"scope" binding:"required"`
	ResourceID  uuid.UUID   `json:"resource_id" binding:"required"`
	AccessLevel AccessLevel `json:"access_level"`
	CanDownload bool        `json:"can_download"`
	MaxUses     *int        `json:"max_uses,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// IssueTokenResponse carries the plaintext token. This is the only place the
// plaintext ever appears; it cannot be recovered afterwards.
type IssueTokenResponse struct {
	ID          uuid.UUID   `json:"id"`
	Token       string      `json:"token"`
	TokenPrefix string      `json:"token_prefix"`
	Scope       TokenScope  `json:"scope"`
	ResourceID  uuid.UUID   `json:"resource_id"`
	AccessLevel AccessLevel `json:"access_level"`
	CanDownload bool        `json:"can_download"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// ValidationResult is the outcome of validating a presented token
type ValidationResult struct {
	Valid       bool        `json:"valid"`
	Scope       TokenScope  `json:"scope,omitempty"`
	ResourceID  uuid.UUID   `json:"resource_id,omitempty"`
	AccessLevel AccessLevel `json:"access_level,omitempty"`
	CanDownload bool        `json:"can_download"`
	Reason      TokenStatus `json:"-"`
}
