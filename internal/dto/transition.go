package dto

import (
	"time"

	"github.com/noah-isme/sma-academic-transition/internal/models"
)

// TransitionRequest triggers an academic year transition.
type TransitionRequest struct {
	NewYear string `json:"newYear" validate:"required,max=32"`
}

// TransitionResult reports what a transition run did.
type TransitionResult struct {
	RunID               string                        `json:"runId"`
	FromYear            string                        `json:"fromYear"`
	ToYear              string                        `json:"toYear"`
	PromotedCount       int                           `json:"promotedCount"`
	RetainedCount       int                           `json:"retainedCount"`
	GraduatedCount      int                           `json:"graduatedCount"`
	SkippedCount        int                           `json:"skippedCount"`
	LedgersWritten      int                           `json:"ledgersWritten"`
	CarriedForwardTotal float64                       `json:"carriedForwardTotal"`
	AssignmentsCopied   int                           `json:"assignmentsCopied"`
	TimetablesCopied    int                           `json:"timetablesCopied"`
	BatchesCommitted    int                           `json:"batchesCommitted"`
	OperationsCommitted int                           `json:"operationsCommitted"`
	Warnings            []models.DataIntegrityWarning `json:"warnings"`
	Failures            []models.StudentFailure       `json:"failures"`
	StartedAt           time.Time                     `json:"startedAt"`
	CompletedAt         time.Time                     `json:"completedAt"`
}

// Stats condenses the result into the counters archived with the retired year.
func (r TransitionResult) Stats() *models.TransitionStats {
	return &models.TransitionStats{
		RunID:               r.RunID,
		PromotedCount:       r.PromotedCount,
		RetainedCount:       r.RetainedCount,
		GraduatedCount:      r.GraduatedCount,
		SkippedCount:        r.SkippedCount,
		LedgersWritten:      r.LedgersWritten,
		CarriedForwardTotal: r.CarriedForwardTotal,
		AssignmentsCopied:   r.AssignmentsCopied,
		TimetablesCopied:    r.TimetablesCopied,
		WarningCount:        len(r.Warnings),
		FailureCount:        len(r.Failures),
	}
}
