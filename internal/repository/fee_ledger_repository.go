package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/internal/store"
)

// FeeLedgerRepository reads and stages writes for fee ledgers.
type FeeLedgerRepository struct {
	store store.DocumentStore
}

// NewFeeLedgerRepository constructs the repository.
func NewFeeLedgerRepository(s store.DocumentStore) *FeeLedgerRepository {
	return &FeeLedgerRepository{store: s}
}

// Find loads the ledger for a student and year. A missing ledger returns nil
// without error. Coerced amounts are reported as warnings.
func (r *FeeLedgerRepository) Find(ctx context.Context, studentID, academicYear string) (*models.FeeLedger, []models.DataIntegrityWarning, error) {
	id := models.FeeLedgerKey(studentID, academicYear)
	doc, err := r.store.Get(ctx, CollectionFeeLedgers, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get fee ledger %s: %w", id, err)
	}
	ledger, warnings := models.FeeLedgerFromFields(doc.ID, doc.Data)
	if ledger.StudentID == "" {
		ledger.StudentID = studentID
	}
	if ledger.AcademicYear == "" {
		ledger.AcademicYear = academicYear
	}
	return &ledger, warnings, nil
}

// SaveOp builds a full replacement of the ledger document.
func (r *FeeLedgerRepository) SaveOp(ledger models.FeeLedger) (store.WriteOp, error) {
	if ledger.Items == nil {
		ledger.Items = []models.LedgerItem{}
	}
	fields, err := store.ToFields(ledger)
	if err != nil {
		return store.WriteOp{}, fmt.Errorf("encode fee ledger %s: %w", ledger.StudentID, err)
	}
	return store.Set(CollectionFeeLedgers, models.FeeLedgerKey(ledger.StudentID, ledger.AcademicYear), fields), nil
}

// MergeOp updates only the totals, status, items and updatedAt of a ledger that
// already exists, leaving every other stored field in place.
func (r *FeeLedgerRepository) MergeOp(ledger models.FeeLedger) (store.WriteOp, error) {
	items := ledger.Items
	if items == nil {
		items = []models.LedgerItem{}
	}
	fields, err := store.ToFields(map[string]interface{}{
		"totalFee":  ledger.TotalFee,
		"status":    ledger.Status,
		"items":     items,
		"updatedAt": ledger.UpdatedAt,
	})
	if err != nil {
		return store.WriteOp{}, fmt.Errorf("encode fee ledger %s: %w", ledger.StudentID, err)
	}
	return store.Merge(CollectionFeeLedgers, models.FeeLedgerKey(ledger.StudentID, ledger.AcademicYear), fields), nil
}
