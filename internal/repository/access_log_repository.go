package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/siscuentas/radicados-api/internal/models"
)

// AccessLogRepository persists the append-only per-document access ledger.
// There is deliberately no update or delete method.
type AccessLogRepository struct {
	db *sqlx.DB
}

// NewAccessLogRepository constructs the repository.
func NewAccessLogRepository(db *sqlx.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

// Create appends one ledger entry.
func (r *AccessLogRepository) Create(ctx context.Context, entry *models.AccessLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO access_logs (id, document_id, actor_id, actor_name, actor_role, action, detail, created_at)
	VALUES (:id, :document_id, :actor_id, :actor_name, :actor_role, :action, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

// ListRecent returns the latest entries for a document, newest first.
func (r *AccessLogRepository) ListRecent(ctx context.Context, documentID string, limit int) ([]models.AccessLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, document_id, actor_id, actor_name, actor_role, action, detail, created_at
	FROM access_logs WHERE document_id = $1 ORDER BY created_at DESC LIMIT $2`
	var entries []models.AccessLog
	if err := r.db.SelectContext(ctx, &entries, query, documentID, limit); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return entries, nil
}
