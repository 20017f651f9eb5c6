package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/siscuentas/radicados-api/internal/models"
)

const auditRecordColumns = `id, document_id, reviewer_id, reviewer_name, status,
       social_security_path, pension_path, health_path, arl_path,
       compliance_path, payment_resolution_path, created_at, updated_at`

// categoryColumns maps attachment categories to their storage columns.
// Guarded to the known set so category input can never reach SQL text.
var categoryColumns = map[string]string{
	models.CategorySocialSecurity:    "social_security_path",
	models.CategoryPension:           "pension_path",
	models.CategoryHealth:            "health_path",
	models.CategoryARL:               "arl_path",
	models.CategoryCompliance:        "compliance_path",
	models.CategoryPaymentResolution: "payment_resolution_path",
}

// AuditRecordRepository persists per-(document, reviewer) audit records
// holding custody state and compliance file references.
type AuditRecordRepository struct {
	db *sqlx.DB
}

// NewAuditRecordRepository constructs the repository.
func NewAuditRecordRepository(db *sqlx.DB) *AuditRecordRepository {
	return &AuditRecordRepository{db: db}
}

// FindByDocumentAndReviewer fetches the reviewer's record for a document.
func (r *AuditRecordRepository) FindByDocumentAndReviewer(ctx context.Context, documentID, reviewerID string) (*models.AuditRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_records WHERE document_id = $1 AND reviewer_id = $2", auditRecordColumns)
	var record models.AuditRecord
	if err := r.db.GetContext(ctx, &record, query, documentID, reviewerID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindActiveByDocumentTx returns the record currently holding custody of
// the document, if any. Runs inside the claim transaction so the
// uniqueness check is covered by the document row lock.
func (r *AuditRecordRepository) FindActiveByDocumentTx(ctx context.Context, tx *sqlx.Tx, documentID string) (*models.AuditRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_records WHERE document_id = $1 AND status = $2", auditRecordColumns)
	var record models.AuditRecord
	if err := tx.GetContext(ctx, &record, query, documentID, models.ReviewUnderReview); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active audit record: %w", err)
	}
	return &record, nil
}

// FindAnyByDocument returns every audit record attached to the document.
func (r *AuditRecordRepository) FindAnyByDocument(ctx context.Context, documentID string) ([]models.AuditRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_records WHERE document_id = $1 ORDER BY created_at ASC", auditRecordColumns)
	var records []models.AuditRecord
	if err := r.db.SelectContext(ctx, &records, query, documentID); err != nil {
		return nil, fmt.Errorf("find audit records: %w", err)
	}
	return records, nil
}

// UpsertTx creates the reviewer's record lazily on first claim or updates
// its custody status on re-claim. The (document_id, reviewer_id) pair is
// unique; attachment columns are untouched on conflict.
func (r *AuditRecordRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, record *models.AuditRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO audit_records
	(id, document_id, reviewer_id, reviewer_name, status, created_at, updated_at)
	VALUES (:id, :document_id, :reviewer_id, :reviewer_name, :status, :created_at, :updated_at)
	ON CONFLICT (document_id, reviewer_id)
	DO UPDATE SET status = EXCLUDED.status, reviewer_name = EXCLUDED.reviewer_name, updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert audit record: %w", err)
	}
	return nil
}

// UpdateStatusTx moves the reviewer's record to a new custody status
// inside the release/decision transaction.
func (r *AuditRecordRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, documentID, reviewerID string, status models.ReviewStatus) error {
	const query = `UPDATE audit_records SET status = $1, updated_at = $2 WHERE document_id = $3 AND reviewer_id = $4`
	result, err := tx.ExecContext(ctx, query, status, time.Now().UTC(), documentID, reviewerID)
	if err != nil {
		return fmt.Errorf("update audit record status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check audit record rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAttachment stores the generated file path for one compliance
// category on the reviewer's record.
func (r *AuditRecordRepository) SetAttachment(ctx context.Context, documentID, reviewerID, category, path string) error {
	column, ok := categoryColumns[category]
	if !ok {
		return fmt.Errorf("unknown attachment category: %s", category)
	}
	query := fmt.Sprintf("UPDATE audit_records SET %s = $1, updated_at = $2 WHERE document_id = $3 AND reviewer_id = $4", column)
	result, err := r.db.ExecContext(ctx, query, path, time.Now().UTC(), documentID, reviewerID)
	if err != nil {
		return fmt.Errorf("set attachment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check attachment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
