package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/repository"
	"github.com/siscuentas/radicados-api/internal/workflow"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
)

type completenessResolver interface {
	Completeness(ctx context.Context, documentID string) (*dto.CompletenessResult, error)
}

type reviewMetrics interface {
	DecisionRecorded(outcome string)
}

// ReviewService records reviewer decisions and handles the filer's
// re-entry of returned documents. Each decision runs in one transaction:
// custody check, note check, audit-stage completeness gate, transition,
// history append and custody-state update commit or roll back together.
type ReviewService struct {
	db           txBeginner
	documents    documentTxStore
	audits       auditTxStore
	completeness completenessResolver
	ledger       ledgerRecorder
	metrics      reviewMetrics
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewReviewService constructs the service.
func NewReviewService(db txBeginner, documents documentTxStore, audits auditTxStore, completeness completenessResolver, ledger ledgerRecorder, metrics reviewMetrics, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ReviewService{
		db:           db,
		documents:    documents,
		audits:       audits,
		completeness: completeness,
		ledger:       ledger,
		metrics:      metrics,
		validate:     validator.New(),
		logger:       logger,
	}
	_ = svc.validate.RegisterValidation("outcome", func(fl validator.FieldLevel) bool {
		return workflow.ValidOutcome(models.DecisionOutcome(fl.Field().String()))
	})
	return svc
}

// Decide records the custodian's verdict on a document and advances the
// pipeline accordingly.
func (s *ReviewService) Decide(ctx context.Context, documentID string, actor *models.JWTClaims, req dto.DecisionRequest) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	note := strings.TrimSpace(req.Note)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin decision transaction")
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

	transition, ok := workflow.DecisionTransition(doc.State, req.Outcome)
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, fmt.Sprintf("%s from %s", req.Outcome, doc.State))
	}
	if !doc.HeldBy(actor.UserID) && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrNotHeld, "only the reviewer holding the document may decide")
	}
	if !transition.AllowsRole(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not decide in state %s", actor.Role, doc.State))
	}
	if transition.NoteRequired && note == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a note explaining the return is required")
	}

	if workflow.RequiresAttachmentGate(doc.State, req.Outcome) {
		verdict, err := s.completeness.Completeness(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if !verdict.Complete {
			return nil, appErrors.WithDetails(appErrors.ErrIncompleteAttachments, verdict.Missing...)
		}
	}

	now := time.Now().UTC()
	if err := s.documents.UpdateWorkflowTx(ctx, tx, repository.WorkflowUpdateParams{
		ID:         documentID,
		State:      transition.To,
		AccessedBy: actor.UserID,
		AccessedAt: now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance document")
	}

	entry := &models.HistoryEntry{
		DocumentID: documentID,
		State:      transition.To,
		ActorID:    actor.UserID,
		ActorName:  actor.FullName,
		ActorRole:  actor.Role,
		CreatedAt:  now,
	}
	if note != "" {
		entry.Note = &note
	}
	if err := s.documents.AppendHistoryTx(ctx, tx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append history")
	}

	// The verdict lands on the record that held custody, which may belong
	// to another reviewer when an administrator decides on their behalf.
	active, err := s.audits.FindActiveByDocumentTx(ctx, tx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check custody")
	}
	if active != nil {
		status := workflow.OutcomeStatus(req.Outcome)
		if err := s.audits.UpdateStatusTx(ctx, tx, documentID, active.ReviewerID, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record verdict")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit decision")
	}
	committed = true

	doc.State = transition.To
	doc.AssigneeID = nil
	doc.AssigneeName = nil

	if s.metrics != nil {
		s.metrics.DecisionRecorded(string(req.Outcome))
	}
	s.record(documentID, actor, models.AccessActionDecide, fmt.Sprintf("%s -> %s", req.Outcome, transition.To))
	return doc, nil
}

// Refile re-enters a RETURNED document into the pipeline. Only the
// original filer, or an administrator, may refile.
func (s *ReviewService) Refile(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin refile transaction")
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

	transition := workflow.RefileTransition()
	if doc.State != transition.From {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, fmt.Sprintf("refile from %s", doc.State))
	}
	if !transition.AllowsRole(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not refile", actor.Role))
	}
	if doc.FilerID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the original filer may refile a returned document")
	}

	now := time.Now().UTC()
	if err := s.documents.UpdateWorkflowTx(ctx, tx, repository.WorkflowUpdateParams{
		ID:         documentID,
		State:      transition.To,
		AccessedBy: actor.UserID,
		AccessedAt: now,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refile document")
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
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit refile")
	}
	committed = true

	doc.State = transition.To
	doc.AssigneeID = nil
	doc.AssigneeName = nil

	s.record(documentID, actor, models.AccessActionRefile, "")
	return doc, nil
}

func (s *ReviewService) record(documentID string, actor *models.JWTClaims, action, detail string) {
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
