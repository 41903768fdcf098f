package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/store"
)

// AcademicYearRepository reads and stages writes for the academic year config document.
type AcademicYearRepository struct {
	store store.DocumentStore
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(s store.DocumentStore) *AcademicYearRepository {
	return &AcademicYearRepository{store: s}
}

// Get returns the stored config, or nil when the document does not exist.
func (r *AcademicYearRepository) Get(ctx context.Context) (*models.AcademicYearConfig, error) {
	doc, err := r.store.Get(ctx, CollectionSystemConfig, AcademicYearsDocID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get academic year config: %w", err)
	}
	var cfg models.AcademicYearConfig
	if err := doc.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveOp merges the academic year fields into the config document, leaving
// unrelated fields untouched.
func (r *AcademicYearRepository) SaveOp(cfg models.AcademicYearConfig) (store.WriteOp, error) {
	if cfg.History == nil {
		cfg.History = []models.YearHistoryEntry{}
	}
	if cfg.Upcoming == nil {
		cfg.Upcoming = []string{}
	}
	fields, err := store.ToFields(cfg)
	if err != nil {
		return store.WriteOp{}, fmt.Errorf("encode academic year config: %w", err)
	}
	return store.Merge(CollectionSystemConfig, AcademicYearsDocID, fields), nil
}
