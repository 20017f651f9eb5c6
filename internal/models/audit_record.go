package models

import "time"

// ReviewStatus tracks the custody and outcome state of an AuditRecord.
// UNDER_REVIEW is the only non-terminal custody state; at most one record
// per document may hold it at any instant.
type ReviewStatus string

const (
	ReviewAvailable   ReviewStatus = "AVAILABLE"
	ReviewUnderReview ReviewStatus = "UNDER_REVIEW"
	ReviewApproved    ReviewStatus = "APPROVED"
	ReviewObserved    ReviewStatus = "OBSERVED"
	ReviewRejected    ReviewStatus = "REJECTED"
	ReviewCompleted   ReviewStatus = "COMPLETED"
)

// Active reports whether the status represents live custody.
func (s ReviewStatus) Active() bool {
	return s == ReviewUnderReview
}

// Attachment categories: five fixed compliance files plus the payment
// resolution. Category names double as storage path prefixes and as the
// "missing" items named by completeness errors.
const (
	CategorySocialSecurity    = "social_security"
	CategoryPension           = "pension"
	CategoryHealth            = "health"
	CategoryARL               = "arl"
	CategoryCompliance        = "compliance_certificate"
	CategoryPaymentResolution = "payment_resolution"
)

// AttachmentCategories lists all required categories in canonical order.
var AttachmentCategories = []string{
	CategorySocialSecurity,
	CategoryPension,
	CategoryHealth,
	CategoryARL,
	CategoryCompliance,
	CategoryPaymentResolution,
}

// ValidCategory reports whether the given name is a known category.
func ValidCategory(name string) bool {
	for _, c := range AttachmentCategories {
		if c == name {
			return true
		}
	}
	return false
}

// AuditRecord holds one reviewer's custody state and compliance file
// references for a document. One row per (document, reviewer); created
// lazily on first claim, never deleted.
type AuditRecord struct {
	ID                    string       `db:"id" json:"id"`
	DocumentID            string       `db:"document_id" json:"documentId"`
	ReviewerID            string       `db:"reviewer_id" json:"reviewerId"`
	ReviewerName          string       `db:"reviewer_name" json:"reviewerName"`
	Status                ReviewStatus `db:"status" json:"status"`
	SocialSecurityPath    *string      `db:"social_security_path" json:"socialSecurityPath,omitempty"`
	PensionPath           *string      `db:"pension_path" json:"pensionPath,omitempty"`
	HealthPath            *string      `db:"health_path" json:"healthPath,omitempty"`
	ARLPath               *string      `db:"arl_path" json:"arlPath,omitempty"`
	CompliancePath        *string      `db:"compliance_path" json:"compliancePath,omitempty"`
	PaymentResolutionPath *string      `db:"payment_resolution_path" json:"paymentResolutionPath,omitempty"`
	CreatedAt             time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updatedAt"`
}

// Attachment returns the stored path for a category, nil when absent.
func (r *AuditRecord) Attachment(category string) *string {
	switch category {
	case CategorySocialSecurity:
		return r.SocialSecurityPath
	case CategoryPension:
		return r.PensionPath
	case CategoryHealth:
		return r.HealthPath
	case CategoryARL:
		return r.ARLPath
	case CategoryCompliance:
		return r.CompliancePath
	case CategoryPaymentResolution:
		return r.PaymentResolutionPath
	}
	return nil
}

// HasAnyAttachment reports whether at least one category is present,
// which is the donor qualification test for inheritance.
func (r *AuditRecord) HasAnyAttachment() bool {
	for _, c := range AttachmentCategories {
		if p := r.Attachment(c); p != nil && *p != "" {
			return true
		}
	}
	return false
}

// MissingCategories lists required categories without a stored file.
func (r *AuditRecord) MissingCategories() []string {
	missing := make([]string, 0, len(AttachmentCategories))
	for _, c := range AttachmentCategories {
		if p := r.Attachment(c); p == nil || *p == "" {
			missing = append(missing, c)
		}
	}
	return missing
}
