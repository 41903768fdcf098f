package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/pkg/export"
	"github.com/noah-isme/sma-academic-transition/pkg/storage"
)

var reportHeaders = []string{"Student", "Name", "From Class", "To Class", "Previous Status", "New Status", "Outcome", "Carried Forward"}

func buildReport(result *dto.TransitionResult, outcomes []models.StudentOutcome) export.Dataset {
	rows := make([]map[string]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, map[string]string{
			"Student":         o.StudentID,
			"Name":            o.Name,
			"From Class":      o.FromClassID,
			"To Class":        o.ToClassID,
			"Previous Status": string(o.PreviousStatus),
			"New Status":      string(o.NewStatus),
			"Outcome":         string(o.Outcome),
			"Carried Forward": strconv.FormatFloat(o.CarriedForward, 'f', 2, 64),
		})
	}
	return export.Dataset{
		Title: fmt.Sprintf("Academic year transition %s to %s", result.FromYear, result.ToYear),
		Summary: []export.SummaryLine{
			{Label: "Run", Value: result.RunID},
			{Label: "Promoted", Value: strconv.Itoa(result.PromotedCount)},
			{Label: "Retained", Value: strconv.Itoa(result.RetainedCount)},
			{Label: "Graduated", Value: strconv.Itoa(result.GraduatedCount)},
			{Label: "Skipped", Value: strconv.Itoa(result.SkippedCount)},
			{Label: "Carried forward", Value: strconv.FormatFloat(result.CarriedForwardTotal, 'f', 2, 64)},
			{Label: "Warnings", Value: strconv.Itoa(len(result.Warnings))},
			{Label: "Failures", Value: strconv.Itoa(len(result.Failures))},
		},
		Headers: reportHeaders,
		Rows:    rows,
	}
}

// writeReport renders the outcomes with renderer and saves them at path.
func writeReport(path string, renderer export.Renderer, result *dto.TransitionResult, outcomes []models.StudentOutcome) (string, error) {
	data, err := renderer.Render(buildReport(result, outcomes))
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	store, err := storage.NewLocalStorage(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	return store.Save(filepath.Base(path), data)
}
