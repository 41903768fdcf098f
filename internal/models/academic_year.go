package models

import "time"

// UnknownAcademicYear stands in for a missing current year in configuration.
const UnknownAcademicYear = "Unknown"

// AcademicYearConfig is the system_config/academic_years document.
type AcademicYearConfig struct {
	CurrentYear          string             `json:"currentYear"`
	CurrentYearStartDate *time.Time         `json:"currentYearStartDate,omitempty"`
	History              []YearHistoryEntry `json:"history"`
	Upcoming             []string           `json:"upcoming"`
}

// YearHistoryEntry archives a retired academic year.
type YearHistoryEntry struct {
	Year          string           `json:"year"`
	ArchivedAt    time.Time        `json:"archivedAt"`
	PromotedCount int              `json:"promotedCount"`
	ArchivedCount int              `json:"archivedCount"`
	Stats         *TransitionStats `json:"stats,omitempty"`
}

// TransitionStats are the aggregate counters stored with a history entry.
type TransitionStats struct {
	RunID               string  `json:"runId"`
	PromotedCount       int     `json:"promotedCount"`
	RetainedCount       int     `json:"retainedCount"`
	GraduatedCount      int     `json:"graduatedCount"`
	SkippedCount        int     `json:"skippedCount"`
	LedgersWritten      int     `json:"ledgersWritten"`
	CarriedForwardTotal float64 `json:"carriedForwardTotal"`
	AssignmentsCopied   int     `json:"assignmentsCopied"`
	TimetablesCopied    int     `json:"timetablesCopied"`
	WarningCount        int     `json:"warningCount"`
	FailureCount        int     `json:"failureCount"`
}

// HasArchived reports whether a history entry exists for the year.
func (c AcademicYearConfig) HasArchived(year string) bool {
	for _, entry := range c.History {
		if entry.Year == year {
			return true
		}
	}
	return false
}

// IsKnown reports whether the config carries a real current year.
func (c AcademicYearConfig) IsKnown() bool {
	return c.CurrentYear != "" && c.CurrentYear != UnknownAcademicYear
}
