package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/siscuentas/radicados-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func documentRows(doc *models.Document) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "radicado", "contract_number", "contractor_id", "contractor_name",
		"coverage_start", "coverage_end", "state", "assignee_id", "assignee_name",
		"filer_id", "filer_name", "first_of_year", "filed_at",
		"last_accessed_at", "last_accessed_by", "created_at", "updated_at",
	}).AddRow(
		doc.ID, doc.Radicado, doc.ContractNumber, doc.ContractorID, doc.ContractorName,
		doc.CoverageStart, doc.CoverageEnd, doc.State, doc.AssigneeID, doc.AssigneeName,
		doc.FilerID, doc.FilerName, doc.FirstOfYear, doc.FiledAt,
		doc.LastAccessedAt, doc.LastAccessedBy, doc.CreatedAt, doc.UpdatedAt,
	)
}

func TestDocumentRepositoryCreateAllocatesRadicado(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO radicado_sequences")).
		WithArgs(2025).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc := &models.Document{
		ContractNumber: "C-10",
		ContractorID:   "ctr-1",
		ContractorName: "ACME Ltda",
		FilerID:        "filer-1",
		FilerName:      "Filer One",
		FiledAt:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	require.Equal(t, "R2025-007", doc.Radicado)
	require.Equal(t, models.StateFiled, doc.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryCreateRollsBackOnSequenceFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO radicado_sequences")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	doc := &models.Document{ContractNumber: "C-10", FilerID: "filer-1", FiledAt: time.Now().UTC()}
	require.Error(t, repo.Create(context.Background(), doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	now := time.Now().UTC()
	doc := &models.Document{
		ID: "doc-1", Radicado: "R2025-001", ContractNumber: "C-10",
		State: models.StateFiled, FilerID: "filer-1", FilerName: "Filer One",
		FiledAt: now, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 FOR UPDATE").
		WithArgs("doc-1").
		WillReturnRows(documentRows(doc))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	found, err := repo.GetForUpdateTx(context.Background(), tx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, "doc-1", found.ID)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateWorkflowRequiresRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.UpdateWorkflowTx(context.Background(), tx, WorkflowUpdateParams{
		ID:         "missing",
		State:      models.StateSupervisorReview,
		AccessedBy: "sup-1",
		AccessedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	now := time.Now().UTC()
	doc := &models.Document{
		ID: "doc-1", Radicado: "R2025-001", ContractNumber: "C-10",
		State: models.StateSupervisorApproved, FilerID: "filer-1",
		FiledAt: now, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE state IN").
		WithArgs("SUPERVISOR_APPROVED", "C-10").
		WillReturnRows(documentRows(doc))

	docs, err := repo.List(context.Background(), models.DocumentFilter{
		States:         []models.DocumentState{models.StateSupervisorApproved},
		ContractNumber: "C-10",
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "doc-1", docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryFindDonorCandidatesOrdersByFilingDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	now := time.Now().UTC()
	first := &models.Document{ID: "doc-jan", Radicado: "R2025-001", ContractNumber: "C-10", State: models.StateFinalized, FirstOfYear: true, FiledAt: now.AddDate(0, -2, 0), CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery("SELECT (.+) FROM documents\\s+WHERE contract_number = \\$1 AND first_of_year = TRUE\\s+ORDER BY filed_at ASC").
		WithArgs("C-10").
		WillReturnRows(documentRows(first))

	docs, err := repo.FindDonorCandidates(context.Background(), "C-10")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "doc-jan", docs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryHistoryOrdersAscending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "document_id", "state", "actor_id", "actor_name", "actor_role", "note", "created_at"}).
		AddRow("h-1", "doc-1", "FILED", "filer-1", "Filer One", "FILER", nil, time.Now().Add(-time.Hour)).
		AddRow("h-2", "doc-1", "SUPERVISOR_REVIEW", "sup-1", "Sup One", "SUPERVISOR", nil, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document_id, state, actor_id, actor_name, actor_role, note, created_at")).
		WithArgs("doc-1").
		WillReturnRows(rows)

	entries, err := repo.History(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.StateFiled, entries[0].State)
	require.Equal(t, models.StateSupervisorReview, entries[1].State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositorySetFirstOfYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET first_of_year")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetFirstOfYear(context.Background(), "doc-1", true))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET first_of_year")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.SetFirstOfYear(context.Background(), "missing", true))
	require.NoError(t, mock.ExpectationsWereMet())
}
