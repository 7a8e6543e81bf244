package models

import (
	"encoding/json"
	"time"
)

// Audit actions
const (
	AuditActionTokenIssued   = "token.issued"
	AuditActionTokenValidate = "token.validate"
	AuditActionTokenRevoked  = "token.revoked"
	AuditActionQRDecode      = "qr.decode"
	AuditActionBatchTag      = "photos.batch_tag"
)

// AuditEntry is one append-only audit record. Identifiers in Detail must be
// masked before they reach the log.
type AuditEntry struct {
	ID        int64           `db:"id" json:"id"`
	RequestID string          `db:"request_id" json:"request_id"`
	Actor     string          `db:"actor" json:"actor"`
	Action    string          `db:"action" json:"action"`
	Outcome   string          `db:"outcome" json:"outcome"`
	Detail    json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
