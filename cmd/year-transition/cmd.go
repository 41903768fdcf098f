package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/noah-isme/sma-academic-transition/internal/dto"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/pkg/export"
)

var errHelp = errors.New("help provided")

type transitionRunner interface {
	Run(ctx context.Context, req dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error)
}

type academicYearReader interface {
	Current(ctx context.Context) (*dto.AcademicYearResponse, error)
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type commandLine struct {
	transition transitionRunner
	years      academicYearReader
	tokens     tokenValidator
	out        io.Writer
	tokenEnv   string

	collect  bool
	outcomes []models.StudentOutcome
}

// record collects per-student outcomes while a report was requested.
func (cli *commandLine) record(o models.StudentOutcome) {
	if !cli.collect {
		return
	}
	cli.outcomes = append(cli.outcomes, o)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  run -year LABEL [-token JWT] [-report FILE.csv|FILE.pdf] - move every student into the new academic year")
	fmt.Fprintln(cli.out, "  status - print the current academic year configuration")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	runCmd := flag.NewFlagSet("run", flag.ContinueOnError)
	runCmd.SetOutput(cli.out)
	runYear := runCmd.String("year", "", "The new academic year label, e.g. 2025-2026.")
	runToken := runCmd.String("token", "", "Administrator access token. Defaults to $TRANSITION_TOKEN.")
	runReport := runCmd.String("report", "", "Write a per-student report to this .csv or .pdf file.")

	switch args[1] {
	case "run":
		if err := runCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if strings.TrimSpace(*runYear) == "" {
			runCmd.Usage()
			return errHelp
		}
		token := *runToken
		if token == "" {
			token = cli.tokenEnv
		}
		return cli.runTransition(*runYear, token, *runReport)
	case "status":
		return cli.status()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) runTransition(year, token, reportPath string) error {
	var renderer export.Renderer
	if reportPath != "" {
		r, err := export.ForFormat(export.FormatFromPath(reportPath))
		if err != nil {
			return err
		}
		renderer = r
	}

	var actor *models.JWTClaims
	if token != "" {
		claims, err := cli.tokens.ValidateToken(token)
		if err != nil {
			return err
		}
		actor = claims
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.outcomes = cli.outcomes[:0]
	cli.collect = renderer != nil
	defer func() { cli.collect = false }()
	result, err := cli.transition.Run(ctx, dto.TransitionRequest{NewYear: year}, actor)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "transition %s -> %s (run %s)\n", result.FromYear, result.ToYear, result.RunID)
	fmt.Fprintf(cli.out, "  promoted:  %d\n  retained:  %d\n  graduated: %d\n  skipped:   %d\n",
		result.PromotedCount, result.RetainedCount, result.GraduatedCount, result.SkippedCount)
	fmt.Fprintf(cli.out, "  carried forward: %.2f across %d ledgers\n", result.CarriedForwardTotal, result.LedgersWritten)
	fmt.Fprintf(cli.out, "  batches: %d (%d ops)\n", result.BatchesCommitted, result.OperationsCommitted)
	for _, w := range result.Warnings {
		fmt.Fprintf(cli.out, "  warning: %s\n", w)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(cli.out, "  failed: %s: %s\n", f.StudentID, f.Message)
	}

	if renderer == nil {
		return nil
	}
	location, err := writeReport(reportPath, renderer, result, cli.outcomes)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "report written to %s\n", location)
	return nil
}

func (cli *commandLine) status() error {
	cfg, err := cli.years.Current(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "current year: %s\n", cfg.CurrentYear)
	if len(cfg.Upcoming) > 0 {
		fmt.Fprintf(cli.out, "upcoming: %s\n", strings.Join(cfg.Upcoming, ", "))
	}
	for _, h := range cfg.History {
		fmt.Fprintf(cli.out, "archived %s on %s: %d promoted, %d retained\n",
			h.Year, h.ArchivedAt.Format("2006-01-02"), h.PromotedCount, h.ArchivedCount)
	}
	return nil
}
