package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/workflow"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
	"github.com/siscuentas/radicados-api/pkg/export"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	History(ctx context.Context, documentID string) ([]models.HistoryEntry, error)
	SetFirstOfYear(ctx context.Context, id string, firstOfYear bool) error
}

type historyRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type tableRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// DocumentService covers the non-custody surface: filing, lookup, listing
// and the printable audit trail.
type DocumentService struct {
	repo     documentStore
	ledger   ledgerRecorder
	pdf      historyRenderer
	csv      tableRenderer
	validate *validator.Validate
	logger   *zap.Logger
}

// NewDocumentService constructs the service.
func NewDocumentService(repo documentStore, ledger ledgerRecorder, pdf historyRenderer, csv tableRenderer, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{repo: repo, ledger: ledger, pdf: pdf, csv: csv, validate: validator.New(), logger: logger}
}

// File creates a new radicado in state FILED and allocates its number.
func (s *DocumentService) File(ctx context.Context, actor *models.JWTClaims, req dto.FileDocumentRequest) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleFiler && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only filers may file documents")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filing payload")
	}
	if !req.CoverageEnd.After(req.CoverageStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "coverage end must be after coverage start")
	}

	doc := &models.Document{
		ContractNumber: req.ContractNumber,
		ContractorID:   req.ContractorID,
		ContractorName: req.ContractorName,
		CoverageStart:  req.CoverageStart,
		CoverageEnd:    req.CoverageEnd,
		FirstOfYear:    req.FirstOfYear,
		FilerID:        actor.UserID,
		FilerName:      actor.FullName,
		FiledAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file document")
	}

	s.record(doc.ID, actor, models.AccessActionFile, doc.Radicado)
	return doc, nil
}

// Get returns a document with its full history attached.
func (s *DocumentService) Get(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	history, err := s.repo.History(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	doc.History = history

	if actor != nil {
		s.record(documentID, actor, models.AccessActionView, "")
	}
	return doc, nil
}

// List returns documents matching the query. With Claimable set, the
// listing narrows to the pre-claim state of the caller's role; for an
// administrator that means every pre-claim state.
func (s *DocumentService) List(ctx context.Context, actor *models.JWTClaims, query dto.DocumentQuery) ([]models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.DocumentFilter{
		States:         query.States,
		ContractNumber: query.ContractNumber,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	if query.Claimable {
		states, err := claimableStates(actor)
		if err != nil {
			return nil, err
		}
		filter.States = states
	}
	docs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// History returns the append-only trail in insertion order.
func (s *DocumentService) History(ctx context.Context, documentID string) ([]models.HistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	history, err := s.repo.History(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return history, nil
}

// HistoryExport is a rendered audit trail ready to serve as a download.
type HistoryExport struct {
	Content     []byte
	Filename    string
	ContentType string
}

// ExportHistory renders the document's trail as a downloadable sheet.
// Format is "pdf" (default) or "csv".
func (s *DocumentService) ExportHistory(ctx context.Context, documentID, format string) (*HistoryExport, error) {
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "csv" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	history, err := s.repo.History(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "State", "Actor", "Role", "Note"},
		Rows:    make([]map[string]string, 0, len(history)),
	}
	for _, entry := range history {
		note := ""
		if entry.Note != nil {
			note = *entry.Note
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":  entry.CreatedAt.Format("2006-01-02 15:04"),
			"State": string(entry.State),
			"Actor": entry.ActorName,
			"Role":  string(entry.ActorRole),
			"Note":  note,
		})
	}

	result := &HistoryExport{}
	if format == "csv" {
		result.Content, err = s.csv.Render(dataset)
		result.Filename = fmt.Sprintf("%s-history.csv", doc.Radicado)
		result.ContentType = "text/csv"
	} else {
		result.Content, err = s.pdf.Render(dataset, fmt.Sprintf("Audit trail %s", doc.Radicado))
		result.Filename = fmt.Sprintf("%s-history.pdf", doc.Radicado)
		result.ContentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history export")
	}
	return result, nil
}

// SetFirstOfYear toggles the first-of-year flag. Administrative only;
// inheritance is resolved at read time so no dependent document changes.
func (s *DocumentService) SetFirstOfYear(ctx context.Context, documentID string, actor *models.JWTClaims, firstOfYear bool) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may change the first-of-year flag")
	}
	if err := s.repo.SetFirstOfYear(ctx, documentID, firstOfYear); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update first-of-year flag")
	}
	s.record(documentID, actor, models.AccessActionFlagEdit, fmt.Sprintf("first_of_year=%t", firstOfYear))
	return nil
}

func claimableStates(actor *models.JWTClaims) ([]models.DocumentState, error) {
	if actor.IsAdmin() {
		states := make([]models.DocumentState, 0, 6)
		for _, t := range workflow.Transitions() {
			if state := t.From; workflow.IsPreClaimState(state) {
				states = appendStateOnce(states, state)
			}
		}
		return states, nil
	}
	state, ok := workflow.ClaimableState(actor.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s has no claimable stage", actor.Role))
	}
	return []models.DocumentState{state}, nil
}

func appendStateOnce(states []models.DocumentState, state models.DocumentState) []models.DocumentState {
	for _, s := range states {
		if s == state {
			return states
		}
	}
	return append(states, state)
}

func (s *DocumentService) record(documentID string, actor *models.JWTClaims, action, detail string) {
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
