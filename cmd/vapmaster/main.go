// Command vapmaster generates a VAP (video-with-alpha) MP4 from a PNG frame
// sequence. It parses flags, validates config and paths, and either runs
// system diagnostics (--check) or the generation pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tiandaoyouchang-png/vap-master/internal/check"
	"github.com/tiandaoyouchang-png/vap-master/internal/config"
	"github.com/tiandaoyouchang-png/vap-master/internal/display"
	"github.com/tiandaoyouchang-png/vap-master/internal/logging"
	"github.com/tiandaoyouchang-png/vap-master/internal/pipeline"
)

// version and commit are set at build time via -ldflags (e.g. Makefile).
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Load config from defaults and CLI flags; exit on parse or validation error.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "vapmaster: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "vapmaster: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vapmaster: %v\n", err)
		return 1
	}
	defer log.Close()

	display.PrintBanner()

	// 2. If the user asked for system diagnostics, run them and exit.
	if cfg.CheckOnly {
		check.RunCheck(&cfg, log)
		return 0
	}

	// 3. Resolve and validate paths: input must exist and the output must
	//    not be inside it.
	inputAbs, err := absPath(cfg.InputDir)
	if err != nil {
		log.Error("Input not found: %s", cfg.InputDir)
		return 1
	}
	outputAbs, err := filepath.Abs(cfg.OutputPath)
	if err != nil {
		log.Error("Cannot resolve output path: %s", cfg.OutputPath)
		return 1
	}
	if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
		log.Error("%v", err)
		return 1
	}

	log.Info("=== vapmaster v%s (%s) ===", version, commit)
	log.Info("In:  %s", cfg.InputDir)
	log.Info("Out: %s", cfg.OutputPath)
	if cfg.DryRun {
		log.Warn("DRY RUN")
	}

	// 4. Ensure the external tools are available; fail fast otherwise.
	if err := check.CheckDeps(&cfg); err != nil {
		log.Error("%v", err)
		return 1
	}

	// 5. Run the pipeline; SIGINT/SIGTERM cancel the in-flight step.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(&cfg, log)
	if _, err := runner.Run(ctx); err != nil {
		log.Error("%v", err)
		return 1
	}
	return 0
}

// absPath returns the absolute path with symlinks resolved, for comparing
// input vs output hierarchy.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
