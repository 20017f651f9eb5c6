package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/repository"
)

// newTxDB returns a sqlx handle whose transactions always begin and
// finish cleanly, for services that only need tx boundaries.
func newTxDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 16; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	return sqlx.NewDb(db, "sqlmock")
}

type stubDocumentTxStore struct {
	doc       *models.Document
	getErr    error
	updateErr error

	updates []repository.WorkflowUpdateParams
	history []models.HistoryEntry
}

func (s *stubDocumentTxStore) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Document, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.doc == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.doc
	return &copied, nil
}

func (s *stubDocumentTxStore) UpdateWorkflowTx(ctx context.Context, tx *sqlx.Tx, params repository.WorkflowUpdateParams) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, params)
	return nil
}

func (s *stubDocumentTxStore) AppendHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.HistoryEntry) error {
	s.history = append(s.history, *entry)
	return nil
}

type statusUpdate struct {
	documentID string
	reviewerID string
	status     models.ReviewStatus
}

type stubAuditTxStore struct {
	active    *models.AuditRecord
	activeErr error

	upserted []models.AuditRecord
	statuses []statusUpdate
}

func (s *stubAuditTxStore) FindActiveByDocumentTx(ctx context.Context, tx *sqlx.Tx, documentID string) (*models.AuditRecord, error) {
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	return s.active, nil
}

func (s *stubAuditTxStore) UpsertTx(ctx context.Context, tx *sqlx.Tx, record *models.AuditRecord) error {
	s.upserted = append(s.upserted, *record)
	return nil
}

func (s *stubAuditTxStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, documentID, reviewerID string, status models.ReviewStatus) error {
	s.statuses = append(s.statuses, statusUpdate{documentID: documentID, reviewerID: reviewerID, status: status})
	return nil
}

type stubLedger struct {
	entries []models.AccessLog
}

func (s *stubLedger) Record(entry models.AccessLog) {
	s.entries = append(s.entries, entry)
}

type stubCompleteness struct {
	result *dto.CompletenessResult
	err    error
}

func (s *stubCompleteness) Completeness(ctx context.Context, documentID string) (*dto.CompletenessResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func strPtr(v string) *string {
	return &v
}

func reviewer(id, name string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, FullName: name, Role: role}
}
