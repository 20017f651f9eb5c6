package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/pkg/config"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
)

type documentReader interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	FindDonorCandidates(ctx context.Context, contractNumber string) ([]models.Document, error)
}

type auditRecordStore interface {
	FindAnyByDocument(ctx context.Context, documentID string) ([]models.AuditRecord, error)
	SetAttachment(ctx context.Context, documentID, reviewerID, category, path string) error
}

type attachmentFileStore interface {
	SaveAttachment(documentID, category, originalName string, r io.Reader) (string, error)
	Open(relPath string) (*os.File, error)
}

type downloadSigner interface {
	Generate(documentID, relPath string) (string, time.Time, error)
	Parse(token string) (documentID, relPath string, expiresAt time.Time, err error)
}

// AttachmentService manages the six compliance attachments and resolves
// the inheritance rule: a non-first document borrows its compliance set
// from the oldest first-of-year filing of the same contract.
type AttachmentService struct {
	documents documentReader
	audits    auditRecordStore
	files     attachmentFileStore
	signer    downloadSigner
	ledger    ledgerRecorder
	logger    *zap.Logger

	maxFileSize  int64
	allowedMIMEs map[string]struct{}
}

// NewAttachmentService constructs the service.
func NewAttachmentService(documents documentReader, audits auditRecordStore, files attachmentFileStore, signer downloadSigner, ledger ledgerRecorder, logger *zap.Logger, cfg config.StorageConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[m] = struct{}{}
	}
	return &AttachmentService{
		documents:    documents,
		audits:       audits,
		files:        files,
		signer:       signer,
		ledger:       ledger,
		logger:       logger,
		maxFileSize:  cfg.MaxFileSizeBytes,
		allowedMIMEs: allowed,
	}
}

// Upload stores one compliance file for the document under the caller's
// audit record. Uploads are restricted to the audit stage and to the
// reviewer currently holding custody.
func (s *AttachmentService) Upload(ctx context.Context, documentID, category string, actor *models.JWTClaims, originalName string, size int64, r io.Reader) (*dto.AttachmentUploadResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidCategory(category) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, fmt.Sprintf("unknown attachment category %q", category))
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxFileSize))
	}
	if len(s.allowedMIMEs) > 0 {
		contentType := mime.TypeByExtension(filepath.Ext(originalName))
		if _, ok := s.allowedMIMEs[contentType]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not accepted", contentType))
		}
	}

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.State != models.StateAuditReview {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, fmt.Sprintf("attachments are uploaded during audit review, document is %s", doc.State))
	}
	if !doc.HeldBy(actor.UserID) && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrNotHeld, "only the reviewer holding the document may upload attachments")
	}

	path, err := s.files.SaveAttachment(documentID, category, originalName, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}

	reviewerID := actor.UserID
	if actor.IsAdmin() && doc.AssigneeID != nil {
		reviewerID = *doc.AssigneeID
	}
	if err := s.audits.SetAttachment(ctx, documentID, reviewerID, category, path); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}

	s.record(documentID, actor, models.AccessActionUpload, category)
	return &dto.AttachmentUploadResult{DocumentID: documentID, Category: category, Path: path}, nil
}

// Completeness resolves the compliance attachment verdict for a document.
//
// A first-of-year document is its own donor and must carry all six
// categories. Any other document inherits from the oldest first-of-year
// filing of the same contract that carries at least one attachment; if no
// such donor exists the set is vacuously complete.
func (s *AttachmentService) Completeness(ctx context.Context, documentID string) (*dto.CompletenessResult, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if doc.FirstOfYear {
		missing, err := s.missingCategories(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		return &dto.CompletenessResult{Complete: len(missing) == 0, Missing: missing, DonorID: &doc.ID}, nil
	}

	donor, err := s.findDonor(ctx, doc)
	if err != nil {
		return nil, err
	}
	if donor == nil {
		// No qualifying first-of-year filing: nothing to inherit from.
		return &dto.CompletenessResult{Complete: true}, nil
	}

	missing, err := s.missingCategories(ctx, donor.ID)
	if err != nil {
		return nil, err
	}
	return &dto.CompletenessResult{Complete: len(missing) == 0, Missing: missing, DonorID: &donor.ID}, nil
}

// DownloadToken issues a signed token for one stored attachment. Tokens
// are minted for pipeline reviewers, administrators and the document's
// own filer; other callers are rejected.
func (s *AttachmentService) DownloadToken(ctx context.Context, documentID, category string, actor *models.JWTClaims) (string, time.Time, error) {
	if actor == nil {
		return "", time.Time{}, appErrors.ErrUnauthorized
	}
	if !models.ValidCategory(category) {
		return "", time.Time{}, appErrors.WithDetails(appErrors.ErrValidation, fmt.Sprintf("unknown attachment category %q", category))
	}
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if !canIssueDownload(doc, actor) {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrForbidden, "attachments may only be downloaded by pipeline reviewers or the original filer")
	}
	path, err := s.attachmentPath(ctx, documentID, category)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(documentID, path)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	s.record(documentID, actor, models.AccessActionView, category)
	return token, expiresAt, nil
}

// OpenByToken validates a signed token and opens the referenced file.
func (s *AttachmentService) OpenByToken(token string) (*os.File, error) {
	_, path, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.files.Open(path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment file not found")
	}
	return file, nil
}

// canIssueDownload limits token minting to the roles that handle the
// document: any review-stage role, an administrator, or the filer of
// this particular document.
func canIssueDownload(doc *models.Document, actor *models.JWTClaims) bool {
	if actor.IsAdmin() {
		return true
	}
	switch actor.Role {
	case models.RoleSupervisor, models.RoleAuditor, models.RoleAccounting,
		models.RoleTreasury, models.RoleAdvisor, models.RoleRendition:
		return true
	case models.RoleFiler:
		return doc.FilerID == actor.UserID
	}
	return false
}

// findDonor returns the oldest first-of-year document of the same contract
// carrying at least one attachment, excluding the document itself.
func (s *AttachmentService) findDonor(ctx context.Context, doc *models.Document) (*models.Document, error) {
	candidates, err := s.documents.FindDonorCandidates(ctx, doc.ContractNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve donor")
	}
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.ID == doc.ID {
			continue
		}
		records, err := s.audits.FindAnyByDocument(ctx, candidate.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load donor records")
		}
		for i := range records {
			if records[i].HasAnyAttachment() {
				return candidate, nil
			}
		}
	}
	return nil, nil
}

// missingCategories merges every reviewer's record for the document and
// lists the categories no one has provided.
func (s *AttachmentService) missingCategories(ctx context.Context, documentID string) ([]string, error) {
	records, err := s.audits.FindAnyByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit records")
	}
	missing := make([]string, 0, len(models.AttachmentCategories))
	for _, category := range models.AttachmentCategories {
		present := false
		for i := range records {
			if p := records[i].Attachment(category); p != nil && *p != "" {
				present = true
				break
			}
		}
		if !present {
			missing = append(missing, category)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return missing, nil
}

func (s *AttachmentService) attachmentPath(ctx context.Context, documentID, category string) (string, error) {
	records, err := s.audits.FindAnyByDocument(ctx, documentID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit records")
	}
	for i := range records {
		if p := records[i].Attachment(category); p != nil && *p != "" {
			return *p, nil
		}
	}
	return "", appErrors.WithDetails(appErrors.ErrNotFound, fmt.Sprintf("no %s attachment stored", category))
}

func (s *AttachmentService) record(documentID string, actor *models.JWTClaims, action, detail string) {
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
