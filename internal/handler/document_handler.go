package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/service"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
	"github.com/siscuentas/radicados-api/pkg/response"
)

type documentService interface {
	File(ctx context.Context, actor *models.JWTClaims, req dto.FileDocumentRequest) (*models.Document, error)
	Get(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.DocumentQuery) ([]models.Document, error)
	History(ctx context.Context, documentID string) ([]models.HistoryEntry, error)
	ExportHistory(ctx context.Context, documentID, format string) (*service.HistoryExport, error)
	SetFirstOfYear(ctx context.Context, documentID string, actor *models.JWTClaims, firstOfYear bool) error
}

type accessReader interface {
	Recent(ctx context.Context, documentID string, limit int) ([]models.AccessLog, error)
}

// DocumentHandler exposes filing, lookup and trail endpoints.
type DocumentHandler struct {
	documents documentService
	accesses  accessReader
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents documentService, accesses accessReader) *DocumentHandler {
	return &DocumentHandler{documents: documents, accesses: accesses}
}

// Create godoc
// @Summary File a new radicado
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.FileDocumentRequest true "Filing payload"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.FileDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filing payload"))
		return
	}
	doc, err := h.documents.File(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, doc, nil)
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param state query string false "Comma separated states"
// @Param contract query string false "Contract number"
// @Param claimable query bool false "Only documents claimable by the caller"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	query := dto.DocumentQuery{
		ContractNumber: strings.TrimSpace(c.Query("contract")),
		Claimable:      c.Query("claimable") == "1" || strings.EqualFold(c.Query("claimable"), "true"),
	}
	if raw := c.Query("state"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				query.States = append(query.States, models.DocumentState(part))
			}
		}
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	docs, err := h.documents.List(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(docs)}
	response.JSON(c, http.StatusOK, docs, pagination)
}

// Get godoc
// @Summary Get a document with its history
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// History godoc
// @Summary Get a document's audit trail
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/history [get]
func (h *DocumentHandler) History(c *gin.Context) {
	entries, err := h.documents.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportHistory godoc
// @Summary Download the audit trail as PDF or CSV
// @Tags Documents
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Document ID"
// @Param format query string false "Export format (pdf or csv)"
// @Success 200 {file} binary
// @Router /documents/{id}/history/export [get]
func (h *DocumentHandler) ExportHistory(c *gin.Context) {
	result, err := h.documents.ExportHistory(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "pdf"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// SetFirstOfYear godoc
// @Summary Toggle the first-of-year flag
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.FirstOfYearRequest true "Flag payload"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/first-of-year [patch]
func (h *DocumentHandler) SetFirstOfYear(c *gin.Context) {
	var req dto.FirstOfYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flag payload"))
		return
	}
	if err := h.documents.SetFirstOfYear(c.Request.Context(), c.Param("id"), claimsFromContext(c), req.FirstOfYear); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"firstOfYear": req.FirstOfYear}, nil)
}

// Accesses godoc
// @Summary List recent access-ledger entries
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/accesses [get]
func (h *DocumentHandler) Accesses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := h.accesses.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
