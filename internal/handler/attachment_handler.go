package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
	"github.com/siscuentas/radicados-api/pkg/response"
)

type attachmentService interface {
	Upload(ctx context.Context, documentID, category string, actor *models.JWTClaims, originalName string, size int64, r io.Reader) (*dto.AttachmentUploadResult, error)
	Completeness(ctx context.Context, documentID string) (*dto.CompletenessResult, error)
	DownloadToken(ctx context.Context, documentID, category string, actor *models.JWTClaims) (string, time.Time, error)
	OpenByToken(token string) (*os.File, error)
}

// AttachmentHandler exposes compliance attachment endpoints.
type AttachmentHandler struct {
	attachments attachmentService
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(attachments attachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Upload godoc
// @Summary Upload one compliance attachment
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param category path string true "Attachment category"
// @Param file formData file true "Attachment file"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/attachments/{category} [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field 'file' is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.attachments.Upload(
		c.Request.Context(),
		c.Param("id"),
		c.Param("category"),
		claimsFromContext(c),
		fileHeader.Filename,
		fileHeader.Size,
		file,
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Completeness godoc
// @Summary Resolve the attachment completeness verdict
// @Tags Attachments
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/attachments/completeness [get]
func (h *AttachmentHandler) Completeness(c *gin.Context) {
	verdict, err := h.attachments.Completeness(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}

// DownloadToken godoc
// @Summary Issue a signed download token for an attachment
// @Tags Attachments
// @Produce json
// @Param id path string true "Document ID"
// @Param category path string true "Attachment category"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/attachments/{category}/download [post]
func (h *AttachmentHandler) DownloadToken(c *gin.Context) {
	token, expiresAt, err := h.attachments.DownloadToken(c.Request.Context(), c.Param("id"), c.Param("category"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expiresAt": expiresAt}, nil)
}

// Download godoc
// @Summary Download an attachment with a signed token
// @Tags Attachments
// @Produce application/octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	file, err := h.attachments.OpenByToken(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	c.FileAttachment(file.Name(), filepath.Base(file.Name()))
}
