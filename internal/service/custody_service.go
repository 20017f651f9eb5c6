package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/repository"
	"github.com/siscuentas/radicados-api/internal/workflow"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
)

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type documentTxStore interface {
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Document, error)
	UpdateWorkflowTx(ctx context.Context, tx *sqlx.Tx, params repository.WorkflowUpdateParams) error
	AppendHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.HistoryEntry) error
}

type auditTxStore interface {
	FindActiveByDocumentTx(ctx context.Context, tx *sqlx.Tx, documentID string) (*models.AuditRecord, error)
	UpsertTx(ctx context.Context, tx *sqlx.Tx, record *models.AuditRecord) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, documentID, reviewerID string, status models.ReviewStatus) error
}

type ledgerRecorder interface {
	Record(entry models.AccessLog)
}

type custodyMetrics interface {
	ClaimGranted()
	ClaimConflict()
}

// CustodyService grants and releases exclusive custody of documents.
// Every mutation serializes on the document row lock so the single-holder
// rule holds under concurrent claims.
type CustodyService struct {
	db        txBeginner
	documents documentTxStore
	audits    auditTxStore
	ledger    ledgerRecorder
	metrics   custodyMetrics
	logger    *zap.Logger
}

// NewCustodyService constructs the service.
func NewCustodyService(db txBeginner, documents documentTxStore, audits auditTxStore, ledger ledgerRecorder, metrics custodyMetrics, logger *zap.Logger) *CustodyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustodyService{
		db:        db,
		documents: documents,
		audits:    audits,
		ledger:    ledger,
		metrics:   metrics,
		logger:    logger,
	}
}

// Claim takes exclusive custody of a document for the caller. Re-claiming
// a document the caller already holds succeeds without side effects.
func (s *CustodyService) Claim(ctx context.Context, documentID string, actor *models.JWTClaims) (*dto.CustodyGrant, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin claim transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	doc, err := s.documents.GetForUpdateTx(ctx, tx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock document")
	}

	active, err := s.audits.FindActiveByDocumentTx(ctx, tx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check custody")
	}

	if active != nil {
		if active.ReviewerID == actor.UserID && doc.HeldBy(actor.UserID) {
			// Idempotent re-claim by the current holder.
			if s.metrics != nil {
				s.metrics.ClaimGranted()
			}
			return &dto.CustodyGrant{Document: doc, Record: active}, nil
		}
		if s.metrics != nil {
			s.metrics.ClaimConflict()
		}
		return nil, appErrors.WithDetails(appErrors.ErrAlreadyClaimed, fmt.Sprintf("held by %s", active.ReviewerName))
	}

	transition, ok := workflow.ClaimTransition(doc.State)
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrNotAvailable, string(doc.State))
	}
	if !transition.AllowsRole(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not claim documents in state %s", actor.Role, doc.State))
	}

	now := time.Now().UTC()
	record := &models.AuditRecord{
		DocumentID:   documentID,
		ReviewerID:   actor.UserID,
		ReviewerName: actor.FullName,
		Status:       models.ReviewUnderReview,
	}
	if err := s.audits.UpsertTx(ctx, tx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record custody")
	}

	if err := s.documents.UpdateWorkflowTx(ctx, tx, repository.WorkflowUpdateParams{
		ID:           documentID,
		State:        transition.To,
		AssigneeID:   &actor.UserID,
		AssigneeName: &actor.FullName,
		AccessedBy:   actor.UserID,
		AccessedAt:   now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move document into review")
	}

	if err := s.documents.AppendHistoryTx(ctx, tx, &models.HistoryEntry{
		DocumentID: documentID,
		State:      transition.To,
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		ActorRole:  actor.Role,
		CreatedAt:  now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append history")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit claim")
	}
	committed = true

	doc.State = transition.To
	doc.AssigneeID = &actor.UserID
	doc.AssigneeName = &actor.FullName

	if s.metrics != nil {
		s.metrics.ClaimGranted()
	}
	s.record(documentID, actor, models.AccessActionClaim, string(transition.To))
	return &dto.CustodyGrant{Document: doc, Record: record}, nil
}

// Release hands a document back to its pre-claim state. Only the current
// holder may release; an administrator may release on a holder's behalf.
func (s *CustodyService) Release(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin release transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	doc, err := s.documents.GetForUpdateTx(ctx, tx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock document")
	}

	transition, ok := workflow.ReleaseTransition(doc.State)
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrNotHeld, string(doc.State))
	}
	if !doc.HeldBy(actor.UserID) && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrNotHeld, "document is held by another reviewer")
	}

	active, err := s.audits.FindActiveByDocumentTx(ctx, tx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check custody")
	}
	if active != nil {
		if err := s.audits.UpdateStatusTx(ctx, tx, documentID, active.ReviewerID, models.ReviewAvailable); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear custody")
		}
	}

	now := time.Now().UTC()
	if err := s.documents.UpdateWorkflowTx(ctx, tx, repository.WorkflowUpdateParams{
		ID:         documentID,
		State:      transition.To,
		AccessedBy: actor.UserID,
		AccessedAt: now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore document state")
	}

	if err := s.documents.AppendHistoryTx(ctx, tx, &models.HistoryEntry{
		DocumentID: documentID,
		State:      transition.To,
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		ActorRole:  actor.Role,
		CreatedAt:  now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append history")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit release")
	}
	committed = true

	doc.State = transition.To
	doc.AssigneeID = nil
	doc.AssigneeName = nil

	s.record(documentID, actor, models.AccessActionRelease, string(transition.To))
	return doc, nil
}

func (s *CustodyService) record(documentID string, actor *models.JWTClaims, action, detail string) {
	if s.ledger == nil {
		return
	}
	s.ledger.Record(models.AccessLog{
		DocumentID: documentID,
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		ActorRole:  actor.Role,
		Action:     action,
		Detail:     detail,
	})
}
