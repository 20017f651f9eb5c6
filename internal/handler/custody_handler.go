package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/pkg/response"
)

type custodyService interface {
	Claim(ctx context.Context, documentID string, actor *models.JWTClaims) (*dto.CustodyGrant, error)
	Release(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, error)
}

// CustodyHandler exposes the claim and release endpoints.
type CustodyHandler struct {
	custody custodyService
}

// NewCustodyHandler constructs the handler.
func NewCustodyHandler(custody custodyService) *CustodyHandler {
	return &CustodyHandler{custody: custody}
}

// Claim godoc
// @Summary Claim exclusive custody of a document
// @Tags Custody
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/claim [post]
func (h *CustodyHandler) Claim(c *gin.Context) {
	grant, err := h.custody.Claim(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Release godoc
// @Summary Release custody of a document
// @Tags Custody
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/release [post]
func (h *CustodyHandler) Release(c *gin.Context) {
	doc, err := h.custody.Release(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
