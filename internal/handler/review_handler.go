package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/siscuentas/radicados-api/internal/dto"
	"github.com/siscuentas/radicados-api/internal/models"
	appErrors "github.com/siscuentas/radicados-api/pkg/errors"
	"github.com/siscuentas/radicados-api/pkg/response"
)

type reviewService interface {
	Decide(ctx context.Context, documentID string, actor *models.JWTClaims, req dto.DecisionRequest) (*models.Document, error)
	Refile(ctx context.Context, documentID string, actor *models.JWTClaims) (*models.Document, error)
}

// ReviewHandler exposes the decision and refile endpoints.
type ReviewHandler struct {
	reviews reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(reviews reviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Decide godoc
// @Summary Record a decision on a held document
// @Tags Review
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /documents/{id}/decision [post]
func (h *ReviewHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	doc, err := h.reviews.Decide(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Refile godoc
// @Summary Re-enter a returned document into the pipeline
// @Tags Review
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/refile [post]
func (h *ReviewHandler) Refile(c *gin.Context) {
	doc, err := h.reviews.Refile(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
