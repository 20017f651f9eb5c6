package dto

import (
	"time"

	"github.com/siscuentas/radicados-api/internal/models"
)

// FileDocumentRequest creates a new radicado in state FILED.
type FileDocumentRequest struct {
	ContractNumber string    `json:"contractNumber" binding:"required" validate:"required"`
	ContractorID   string    `json:"contractorId" binding:"required" validate:"required"`
	ContractorName string    `json:"contractorName" binding:"required" validate:"required"`
	CoverageStart  time.Time `json:"coverageStart" binding:"required" validate:"required"`
	CoverageEnd    time.Time `json:"coverageEnd" binding:"required" validate:"required"`
	FirstOfYear    bool      `json:"firstOfYear"`
}

// DocumentQuery constrains document listing.
type DocumentQuery struct {
	States         []models.DocumentState
	ContractNumber string
	Claimable      bool
	Page           int
	PageSize       int
}

// DecisionRequest records a custodian's verdict on a document.
type DecisionRequest struct {
	Outcome models.DecisionOutcome `json:"outcome" binding:"required" validate:"required,outcome"`
	Note    string                 `json:"note"`
}

// FirstOfYearRequest toggles the first-of-year flag administratively.
type FirstOfYearRequest struct {
	FirstOfYear bool `json:"firstOfYear"`
}

// CustodyGrant is the result of a successful claim: the document in its
// review state plus the reviewer's audit record holding custody.
type CustodyGrant struct {
	Document *models.Document    `json:"document"`
	Record   *models.AuditRecord `json:"record"`
}

// CompletenessResult is the attachment inheritance resolver's verdict.
type CompletenessResult struct {
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
	DonorID  *string  `json:"donorId,omitempty"`
}

// AttachmentUploadResult reports where an uploaded compliance file landed.
type AttachmentUploadResult struct {
	DocumentID string `json:"documentId"`
	Category   string `json:"category"`
	Path       string `json:"path"`
}
