package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/models"
)

type ledgerReader interface {
	Find(ctx context.Context, studentID, academicYear string) (*models.FeeLedger, []models.DataIntegrityWarning, error)
}

// LedgerBalance is the outcome of reconciling one ledger.
type LedgerBalance struct {
	Pending  float64
	Ledger   *models.FeeLedger
	Warnings []models.DataIntegrityWarning
}

// LedgerReconciler computes outstanding balances from stored ledgers.
type LedgerReconciler struct {
	ledgers ledgerReader
	logger  *zap.Logger
}

// NewLedgerReconciler constructs the reconciler.
func NewLedgerReconciler(ledgers ledgerReader, logger *zap.Logger) *LedgerReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerReconciler{ledgers: ledgers, logger: logger}
}

// PendingBalance returns totalFee minus totalPaid for the student's ledger in
// sourceYear. A missing ledger has a zero balance. Negative balances are
// returned as is.
func (r *LedgerReconciler) PendingBalance(ctx context.Context, studentID, sourceYear string) (LedgerBalance, error) {
	ledger, warnings, err := r.ledgers.Find(ctx, studentID, sourceYear)
	if err != nil {
		return LedgerBalance{}, err
	}
	for _, w := range warnings {
		r.logger.Warn("data integrity warning",
			zap.String("collection", w.Collection),
			zap.String("document_id", w.DocumentID),
			zap.String("field", w.Field),
			zap.String("value", w.Value),
		)
	}
	if ledger == nil {
		return LedgerBalance{Warnings: warnings}, nil
	}
	return LedgerBalance{Pending: ledger.Outstanding(), Ledger: ledger, Warnings: warnings}, nil
}
