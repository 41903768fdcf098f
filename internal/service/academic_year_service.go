package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	appErrors "github.com/noah-isme/sma-academic-transition/pkg/errors"
)

// Cache keys for the academic year read model.
const (
	AcademicYearCacheKey     = "academic_years:current"
	AcademicYearCachePattern = "academic_years:*"
)

type academicYearReader interface {
	Get(ctx context.Context) (*models.AcademicYearConfig, error)
}

type academicYearCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// AcademicYearService serves the academic year configuration.
type AcademicYearService struct {
	repo   academicYearReader
	cache  academicYearCache
	logger *zap.Logger
}

// NewAcademicYearService constructs the service. cache may be nil.
func NewAcademicYearService(repo academicYearReader, cache academicYearCache, logger *zap.Logger) *AcademicYearService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, cache: cache, logger: logger}
}

// Current returns the academic year configuration. A missing document is
// reported with Configured false and the Unknown current year.
func (s *AcademicYearService) Current(ctx context.Context) (*dto.AcademicYearResponse, error) {
	var cached dto.AcademicYearResponse
	if s.cache != nil && s.cache.Get(ctx, AcademicYearCacheKey, &cached) {
		return &cached, nil
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load academic year config")
	}

	resp := &dto.AcademicYearResponse{
		AcademicYearConfig: models.AcademicYearConfig{
			CurrentYear: models.UnknownAcademicYear,
			History:     []models.YearHistoryEntry{},
			Upcoming:    []string{},
		},
	}
	if cfg != nil {
		resp.AcademicYearConfig = *cfg
		resp.Configured = cfg.IsKnown()
		if resp.History == nil {
			resp.History = []models.YearHistoryEntry{}
		}
		if resp.Upcoming == nil {
			resp.Upcoming = []string{}
		}
		if resp.CurrentYear == "" {
			resp.CurrentYear = models.UnknownAcademicYear
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, AcademicYearCacheKey, resp, 0)
	}
	return resp, nil
}
