package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/siscuentas/radicados-api/internal/models"
)

const documentColumns = `id, radicado, contract_number, contractor_id, contractor_name,
       coverage_start, coverage_end, state, assignee_id, assignee_name,
       filer_id, filer_name, first_of_year, filed_at,
       last_accessed_at, last_accessed_by, created_at, updated_at`

// DocumentRepository persists documents, their radicado numbers and their
// append-only history.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create files a new document: allocates the next radicado number for the
// filing year, inserts the row in state FILED and appends the initial
// history entry, all in one transaction.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin filing transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.FiledAt.IsZero() {
		doc.FiledAt = now
	}
	doc.State = models.StateFiled
	doc.CreatedAt = now
	doc.UpdatedAt = now

	year := doc.FiledAt.Year()
	var seq int
	const seqQuery = `INSERT INTO radicado_sequences (year, last_seq) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_seq = radicado_sequences.last_seq + 1
RETURNING last_seq`
	if err = tx.GetContext(ctx, &seq, seqQuery, year); err != nil {
		return fmt.Errorf("allocate radicado sequence: %w", err)
	}
	doc.Radicado = fmt.Sprintf("R%d-%03d", year, seq)

	const insertQuery = `INSERT INTO documents
	(id, radicado, contract_number, contractor_id, contractor_name, coverage_start, coverage_end,
	 state, assignee_id, assignee_name, filer_id, filer_name, first_of_year, filed_at, created_at, updated_at)
	VALUES (:id, :radicado, :contract_number, :contractor_id, :contractor_name, :coverage_start, :coverage_end,
	 :state, :assignee_id, :assignee_name, :filer_id, :filer_name, :first_of_year, :filed_at, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	entry := &models.HistoryEntry{
		DocumentID: doc.ID,
		State:      models.StateFiled,
		ActorID:    doc.FilerID,
		ActorName:  doc.FilerName,
		ActorRole:  models.RoleFiler,
		CreatedAt:  now,
	}
	if err = r.AppendHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit filing: %w", err)
	}
	return nil
}

// GetByID fetches a document by identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE id = $1", documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetForUpdateTx reads a document row under an exclusive lock. Concurrent
// claims and decisions on the same id serialize on this lock; a waiter
// past the configured lock_timeout fails with a retryable storage error.
func (r *DocumentRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Document, error) {
	query := fmt.Sprintf("SELECT %s FROM documents WHERE id = $1 FOR UPDATE", documentColumns)
	var doc models.Document
	if err := tx.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WorkflowUpdateParams groups the columns a transition mutates.
type WorkflowUpdateParams struct {
	ID           string
	State        models.DocumentState
	AssigneeID   *string
	AssigneeName *string
	AccessedBy   string
	AccessedAt   time.Time
}

// UpdateWorkflowTx persists a state transition inside the claim/decision
// transaction.
func (r *DocumentRepository) UpdateWorkflowTx(ctx context.Context, tx *sqlx.Tx, params WorkflowUpdateParams) error {
	const query = `UPDATE documents
	SET state = $1, assignee_id = $2, assignee_name = $3,
	    last_accessed_at = $4, last_accessed_by = $5, updated_at = $4
	WHERE id = $6`
	result, err := tx.ExecContext(ctx, query,
		params.State, params.AssigneeID, params.AssigneeName,
		params.AccessedAt, params.AccessedBy, params.ID)
	if err != nil {
		return fmt.Errorf("update document workflow: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check workflow update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendHistoryTx appends one history entry. History rows are insert-only;
// there is no update or delete path.
func (r *DocumentRepository) AppendHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_history (id, document_id, state, actor_id, actor_name, actor_role, note, created_at)
	VALUES (:id, :document_id, :state, :actor_id, :actor_name, :actor_role, :note, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// History returns a document's full trail in insertion order.
func (r *DocumentRepository) History(ctx context.Context, documentID string) ([]models.HistoryEntry, error) {
	const query = `SELECT id, document_id, state, actor_id, actor_name, actor_role, note, created_at
	FROM document_history WHERE document_id = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, documentID); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

// List returns documents matching the filter, newest filings first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	fmt.Fprintf(&builder, "SELECT %s FROM documents", documentColumns)

	conditions := make([]string, 0, 3)
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ContractNumber != "" {
		args = append(args, filter.ContractNumber)
		conditions = append(conditions, fmt.Sprintf("contract_number = $%d", len(args)))
	}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY filed_at DESC")

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	fmt.Fprintf(&builder, " LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// FindDonorCandidates returns first-of-year documents sharing the contract
// number, oldest filing first, for attachment inheritance resolution.
func (r *DocumentRepository) FindDonorCandidates(ctx context.Context, contractNumber string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents
	WHERE contract_number = $1 AND first_of_year = TRUE
	ORDER BY filed_at ASC`, documentColumns)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, contractNumber); err != nil {
		return nil, fmt.Errorf("find donor candidates: %w", err)
	}
	return docs, nil
}

// SetFirstOfYear toggles the first-of-year flag administratively.
// Inheritance is resolved at read time, so dependent documents are not
// revalidated here.
func (r *DocumentRepository) SetFirstOfYear(ctx context.Context, id string, firstOfYear bool) error {
	const query = `UPDATE documents SET first_of_year = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, firstOfYear, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set first of year: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check first of year rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
