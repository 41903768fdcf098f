package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	appErrors "github.com/noah-isme/sma-academic-transition/pkg/errors"
)

type academicYearServiceMock struct {
	resp *dto.AcademicYearResponse
	err  error
}

func (m *academicYearServiceMock) Current(ctx context.Context) (*dto.AcademicYearResponse, error) {
	return m.resp, m.err
}

func TestAcademicYearHandlerCurrent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAcademicYearHandler(&academicYearServiceMock{resp: &dto.AcademicYearResponse{
		AcademicYearConfig: models.AcademicYearConfig{CurrentYear: "2025-2026", History: []models.YearHistoryEntry{}, Upcoming: []string{}},
		Configured:         true,
	}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/academic-years", nil)

	handler.Current(c)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2025-2026", body.Data["currentYear"])
	assert.Equal(t, true, body.Data["configured"])
}

func TestAcademicYearHandlerCurrentError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAcademicYearHandler(&academicYearServiceMock{err: appErrors.Wrap(errors.New("down"), appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load academic year config")})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/academic-years", nil)

	handler.Current(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
