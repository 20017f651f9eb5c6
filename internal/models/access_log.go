package models

import "time"

// AccessAction constants name the ledger actions recorded per document.
const (
	AccessActionView     = "VIEW"
	AccessActionClaim    = "CLAIM"
	AccessActionRelease  = "RELEASE"
	AccessActionDecide   = "DECIDE"
	AccessActionUpload   = "UPLOAD"
	AccessActionFile     = "FILE"
	AccessActionRefile   = "REFILE"
	AccessActionFlagEdit = "FLAG_EDIT"
)

// AccessLog is one append-only entry of the per-document access ledger.
// The ledger is best-effort observability: writes never fail business
// operations and entries are never edited or removed.
type AccessLog struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	ActorID    string    `db:"actor_id" json:"actorId"`
	ActorName  string    `db:"actor_name" json:"actorName"`
	ActorRole  UserRole  `db:"actor_role" json:"actorRole"`
	Action     string    `db:"action" json:"action"`
	Detail     string    `db:"detail" json:"detail"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
