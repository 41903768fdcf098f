package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	appErrors "github.com/noah-isme/sma-academic-transition/pkg/errors"
	"github.com/noah-isme/sma-academic-transition/pkg/response"
)

type transitionService interface {
	Run(ctx context.Context, req dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error)
}

// TransitionHandler exposes the academic year transition.
type TransitionHandler struct {
	service transitionService
}

// NewTransitionHandler builds a new handler.
func NewTransitionHandler(service transitionService) *TransitionHandler {
	return &TransitionHandler{service: service}
}

// Run godoc
// @Summary Run the academic year transition
// @Description Promotes every active student into the new academic year and carries unpaid fees forward.
// @Tags AcademicYear
// @Accept json
// @Produce json
// @Param payload body dto.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic-years/transition [post]
func (h *TransitionHandler) Run(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, map[string]interface{}{"runId": result.RunID})
}
