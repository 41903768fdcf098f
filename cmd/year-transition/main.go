package main

import (
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-transition/internal/bootstrap"
	"github.com/noah-isme/sma-academic-transition/internal/service"
	"github.com/noah-isme/sma-academic-transition/pkg/config"
	"github.com/noah-isme/sma-academic-transition/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.NewCLI(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	cli := &commandLine{out: os.Stdout, tokenEnv: os.Getenv("TRANSITION_TOKEN")}
	rt, err := bootstrap.New(cfg, logr, service.WithOutcomeRecorder(cli.record))
	if err != nil {
		logr.Fatal("failed to initialise services", zap.Error(err))
	}
	cli.transition = rt.Transition
	cli.years = rt.AcademicYears
	cli.tokens = rt.Tokens

	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logr.Error("command failed", zap.Error(err))
		}
		code = 1
	}
	_ = rt.Close()
	_ = logr.Sync()
	os.Exit(code)
}
