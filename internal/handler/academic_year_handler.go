package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/pkg/response"
)

type academicYearService interface {
	Current(ctx context.Context) (*dto.AcademicYearResponse, error)
}

// AcademicYearHandler exposes the academic year configuration.
type AcademicYearHandler struct {
	service academicYearService
}

// NewAcademicYearHandler builds a new handler.
func NewAcademicYearHandler(service academicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{service: service}
}

// Current godoc
// @Summary Get the academic year configuration
// @Tags AcademicYear
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) Current(c *gin.Context) {
	resp, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}
