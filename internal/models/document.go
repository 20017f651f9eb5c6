package models

import "time"

// DocumentState enumerates the workflow pipeline states. Review states
// grant exclusive custody to one reviewer; RETURNED is the lateral escape
// back to the filer; FINALIZED is terminal.
type DocumentState string

const (
	StateFiled              DocumentState = "FILED"
	StateSupervisorReview   DocumentState = "SUPERVISOR_REVIEW"
	StateSupervisorApproved DocumentState = "SUPERVISOR_APPROVED"
	StateAuditReview        DocumentState = "AUDIT_REVIEW"
	StateAuditApproved      DocumentState = "AUDIT_APPROVED"
	StateAccountingReview   DocumentState = "ACCOUNTING_REVIEW"
	StateAccountingApproved DocumentState = "ACCOUNTING_APPROVED"
	StateTreasuryReview     DocumentState = "TREASURY_REVIEW"
	StateTreasuryApproved   DocumentState = "TREASURY_APPROVED"
	StateManagementReview   DocumentState = "MANAGEMENT_REVIEW"
	StateManagementApproved DocumentState = "MANAGEMENT_APPROVED"
	StateRenditionReview    DocumentState = "RENDITION_REVIEW"
	StateFinalized          DocumentState = "FINALIZED"
	StateReturned           DocumentState = "RETURNED"
)

// DecisionOutcome captures the verdict a custodian records on a document.
type DecisionOutcome string

const (
	OutcomeApproved  DecisionOutcome = "APPROVED"
	OutcomeObserved  DecisionOutcome = "OBSERVED"
	OutcomeRejected  DecisionOutcome = "REJECTED"
	OutcomeCompleted DecisionOutcome = "COMPLETED"
	OutcomeReturned  DecisionOutcome = "RETURNED"
)

// Document is one contract-payment claim package (radicado) tracked
// through the review pipeline.
type Document struct {
	ID             string        `db:"id" json:"id"`
	Radicado       string        `db:"radicado" json:"radicado"`
	ContractNumber string        `db:"contract_number" json:"contractNumber"`
	ContractorID   string        `db:"contractor_id" json:"contractorId"`
	ContractorName string        `db:"contractor_name" json:"contractorName"`
	CoverageStart  time.Time     `db:"coverage_start" json:"coverageStart"`
	CoverageEnd    time.Time     `db:"coverage_end" json:"coverageEnd"`
	State          DocumentState `db:"state" json:"state"`
	AssigneeID     *string       `db:"assignee_id" json:"assigneeId,omitempty"`
	AssigneeName   *string       `db:"assignee_name" json:"assigneeName,omitempty"`
	FilerID        string        `db:"filer_id" json:"filerId"`
	FilerName      string        `db:"filer_name" json:"filerName"`
	FirstOfYear    bool          `db:"first_of_year" json:"firstOfYear"`
	FiledAt        time.Time     `db:"filed_at" json:"filedAt"`
	LastAccessedAt *time.Time    `db:"last_accessed_at" json:"lastAccessedAt,omitempty"`
	LastAccessedBy *string       `db:"last_accessed_by" json:"lastAccessedBy,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`

	History []HistoryEntry `db:"-" json:"history,omitempty"`
}

// Held reports whether the document is currently in a reviewer's custody.
func (d *Document) Held() bool {
	return d.AssigneeID != nil && *d.AssigneeID != ""
}

// HeldBy reports whether the given user currently holds the document.
func (d *Document) HeldBy(userID string) bool {
	return d.AssigneeID != nil && *d.AssigneeID == userID
}

// HistoryEntry is one append-only record of a state change. Insertion order
// is significant; entries are never edited or removed.
type HistoryEntry struct {
	ID         string        `db:"id" json:"id"`
	DocumentID string        `db:"document_id" json:"documentId"`
	State      DocumentState `db:"state" json:"state"`
	ActorID    string        `db:"actor_id" json:"actorId"`
	ActorName  string        `db:"actor_name" json:"actorName"`
	ActorRole  UserRole      `db:"actor_role" json:"actorRole"`
	Note       *string       `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
}

// DocumentFilter constrains listing queries.
type DocumentFilter struct {
	States         []DocumentState
	ContractNumber string
	AssigneeID     string
	Page           int
	PageSize       int
}
