package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/siscuentas/radicados-api/internal/models"
)

func auditRecordRows(record *models.AuditRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "document_id", "reviewer_id", "reviewer_name", "status",
		"social_security_path", "pension_path", "health_path", "arl_path",
		"compliance_path", "payment_resolution_path", "created_at", "updated_at",
	}).AddRow(
		record.ID, record.DocumentID, record.ReviewerID, record.ReviewerName, record.Status,
		record.SocialSecurityPath, record.PensionPath, record.HealthPath, record.ARLPath,
		record.CompliancePath, record.PaymentResolutionPath, record.CreatedAt, record.UpdatedAt,
	)
}

func TestAuditRecordRepositoryFindActiveReturnsNilWithoutHolder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE document_id = \\$1 AND status = \\$2").
		WithArgs("doc-1", "UNDER_REVIEW").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	record, err := repo.FindActiveByDocumentTx(context.Background(), tx, "doc-1")
	require.NoError(t, err)
	require.Nil(t, record)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecordRepositoryFindActiveReturnsHolder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRecordRepository(db)
	now := time.Now().UTC()
	record := &models.AuditRecord{
		ID: "rec-1", DocumentID: "doc-1", ReviewerID: "aud-1", ReviewerName: "Aud One",
		Status: models.ReviewUnderReview, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE document_id = \\$1 AND status = \\$2").
		WithArgs("doc-1", "UNDER_REVIEW").
		WillReturnRows(auditRecordRows(record))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	found, err := repo.FindActiveByDocumentTx(context.Background(), tx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "aud-1", found.ReviewerID)
	require.True(t, found.Status.Active())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecordRepositoryUpsertPreservesAttachmentsOnConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (document_id, reviewer_id)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	record := &models.AuditRecord{
		DocumentID: "doc-1", ReviewerID: "aud-1", ReviewerName: "Aud One",
		Status: models.ReviewUnderReview,
	}
	require.NoError(t, repo.UpsertTx(context.Background(), tx, record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.UpdatedAt.IsZero())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecordRepositoryUpdateStatusRequiresRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audit_records SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.UpdateStatusTx(context.Background(), tx, "doc-1", "nobody", models.ReviewAvailable)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecordRepositorySetAttachmentMapsCategoryToColumn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE audit_records SET pension_path")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetAttachment(context.Background(), "doc-1", "aud-1", models.CategoryPension, "doc-1/auditor/pension-ab12cd34.pdf")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecordRepositorySetAttachmentRejectsUnknownCategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRecordRepository(db)
	err := repo.SetAttachment(context.Background(), "doc-1", "aud-1", "tax_receipt", "x")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
