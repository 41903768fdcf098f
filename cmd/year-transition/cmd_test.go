package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	appErrors "github.com/noah-isme/sma-academic-transition/pkg/errors"
)

type stubRunner struct {
	cli      *commandLine
	gotReq   dto.TransitionRequest
	gotActor *models.JWTClaims
	err      error
}

func (s *stubRunner) Run(ctx context.Context, req dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	s.gotReq = req
	s.gotActor = actor
	if s.err != nil {
		return nil, s.err
	}
	s.cli.record(models.StudentOutcome{StudentID: "S-1", Name: "Asha", FromClassID: "ukg", ToClassID: "class-1",
		PreviousStatus: models.StudentStatusActive, NewStatus: models.StudentStatusActive, Outcome: models.OutcomePromoted, CarriedForward: 1500})
	return &dto.TransitionResult{RunID: "run-1", FromYear: "2024-2025", ToYear: req.NewYear, PromotedCount: 1, CarriedForwardTotal: 1500, LedgersWritten: 1}, nil
}

type stubYears struct {
	resp *dto.AcademicYearResponse
}

func (s *stubYears) Current(ctx context.Context) (*dto.AcademicYearResponse, error) {
	return s.resp, nil
}

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, nil
}

func setup() (*commandLine, *stubRunner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cli := &commandLine{out: out, tokens: stubTokens{}}
	runner := &stubRunner{cli: cli}
	cli.transition = runner
	cli.years = &stubYears{resp: &dto.AcademicYearResponse{AcademicYearConfig: models.AcademicYearConfig{
		CurrentYear: "2025-2026",
		Upcoming:    []string{"2026-2027"},
		History:     []models.YearHistoryEntry{{Year: "2024-2025", ArchivedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), PromotedCount: 10, ArchivedCount: 2}},
	}}}
	return cli, runner, out
}

func Test_commandLine_usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no subcommand", args: []string{"year-transition"}},
		{name: "unknown subcommand", args: []string{"year-transition", "lol"}},
		{name: "run without year", args: []string{"year-transition", "run"}},
		{name: "run with blank year", args: []string{"year-transition", "run", "-year", "  "}},
		{name: "run with unknown flag", args: []string{"year-transition", "run", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, runner, _ := setup()
			err := cli.run(tt.args)
			assert.ErrorIs(t, err, errHelp)
			assert.Empty(t, runner.gotReq.NewYear)
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, runner, out := setup()
	err := cli.run([]string{"year-transition", "run", "-year", "2025-2026", "-token", "good"})
	require.NoError(t, err)
	assert.Equal(t, "2025-2026", runner.gotReq.NewYear)
	require.NotNil(t, runner.gotActor)
	assert.Equal(t, "admin", runner.gotActor.UserID)
	assert.Contains(t, out.String(), "transition 2024-2025 -> 2025-2026 (run run-1)")
	assert.Contains(t, out.String(), "carried forward: 1500.00 across 1 ledgers")
}

func Test_commandLine_runUsesTokenFromEnvironment(t *testing.T) {
	cli, runner, _ := setup()
	cli.tokenEnv = "good"
	require.NoError(t, cli.run([]string{"year-transition", "run", "-year", "2025-2026"}))
	require.NotNil(t, runner.gotActor)
}

func Test_commandLine_runWithoutTokenPassesNoActor(t *testing.T) {
	cli, runner, _ := setup()
	runner.err = appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	err := cli.run([]string{"year-transition", "run", "-year", "2025-2026"})
	assert.ErrorIs(t, err, runner.err)
	assert.Nil(t, runner.gotActor)
}

func Test_commandLine_runRejectsBadToken(t *testing.T) {
	cli, runner, _ := setup()
	err := cli.run([]string{"year-transition", "run", "-year", "2025-2026", "-token", "bad"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.Empty(t, runner.gotReq.NewYear)
}

func Test_commandLine_runWritesCSVReport(t *testing.T) {
	cli, _, out := setup()
	path := filepath.Join(t.TempDir(), "reports", "transition.csv")
	require.NoError(t, cli.run([]string{"year-transition", "run", "-year", "2025-2026", "-token", "good", "-report", path}))
	assert.Contains(t, out.String(), "report written to")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	var found bool
	for _, rec := range records {
		if len(rec) == len(reportHeaders) && rec[0] == "S-1" {
			found = true
			assert.Equal(t, "PROMOTED", rec[6])
			assert.Equal(t, "1500.00", rec[7])
		}
	}
	assert.True(t, found)
}

func Test_commandLine_runWritesPDFReport(t *testing.T) {
	cli, _, _ := setup()
	path := filepath.Join(t.TempDir(), "transition.pdf")
	require.NoError(t, cli.run([]string{"year-transition", "run", "-year", "2025-2026", "-token", "good", "-report", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func Test_commandLine_runRejectsUnknownReportFormat(t *testing.T) {
	cli, runner, _ := setup()
	path := filepath.Join(t.TempDir(), "transition.xlsx")
	err := cli.run([]string{"year-transition", "run", "-year", "2025-2026", "-token", "good", "-report", path})
	assert.ErrorContains(t, err, "unsupported report format")
	assert.Empty(t, runner.gotReq.NewYear)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func Test_commandLine_runWithoutReportKeepsNoOutcomes(t *testing.T) {
	cli, runner, _ := setup()
	require.NoError(t, cli.run([]string{"year-transition", "run", "-year", "2025-2026", "-token", "good"}))
	assert.Equal(t, "2025-2026", runner.gotReq.NewYear)
	assert.Empty(t, cli.outcomes)
	assert.False(t, cli.collect)
}

func Test_commandLine_status(t *testing.T) {
	cli, _, out := setup()
	require.NoError(t, cli.run([]string{"year-transition", "status"}))
	assert.Contains(t, out.String(), "current year: 2025-2026")
	assert.Contains(t, out.String(), "upcoming: 2026-2027")
	assert.Contains(t, out.String(), "archived 2024-2025 on 2025-04-01: 10 promoted, 2 retained")
}
