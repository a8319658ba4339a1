package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdimtricp/pagescan/internal/bootstrap"
	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/kdimtricp/pagescan/internal/logging"
	"github.com/kdimtricp/pagescan/internal/processing"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	envFile := ".env"
	if v := os.Getenv("ENV_FILE"); v != "" {
		envFile = v
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return 2
	}

	target, verbose, record, err := parseFlags(cfg, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.Setup(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(ctx, cfg, record, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer c.Close()

	report, err := c.Service.Run(ctx, target)
	if report == nil {
		logger.Error("run failed", "error", err)
		return 1
	}

	logger.Info("total keyframes saved", "keyframes", report.Keyframes, "documents", len(report.Documents))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("run interrupted")
		} else {
			logger.Error("some documents failed", "failures", report.Failures, "error", err)
		}
		return 1
	}
	return 0
}

// parseFlags applies command line overrides on top of cfg and returns the
// run target.
func parseFlags(cfg *config.Config, args []string) (processing.Target, bool, bool, error) {
	fs := flag.NewFlagSet("keyframes", flag.ContinueOnError)

	var (
		minSimilarity  = fs.Float64("min-similarity", cfg.MinSimilarity, "Lowest histogram correlation at which a frame joins the open segment")
		sharpnessFloor = fs.Float64("sharpness-floor", cfg.SharpnessFloor, "Lowest sharpness at which a frame may represent its segment")
		framesRoot     = fs.String("frames-root", cfg.FramesRoot, "Directory whose subdirectories are documents")
		framesDir      = fs.String("frames-dir", "", "Single document directory")
		outputSubdir   = fs.String("output-subdir", cfg.OutputSubdir, "Subdirectory of each document receiving the keyframes")
		staleExt       = fs.String("stale-ext", cfg.StaleExt, "Extension of previous keyframes removed before writing")
		workers        = fs.Int("workers", cfg.Workers, "Documents processed in parallel")
		verbose        = fs.Bool("verbose", false, "Enable debug logging")
		record         = fs.Bool("record", false, "Record the run in the tracking database")
	)
	if err := fs.Parse(args); err != nil {
		return processing.Target{}, false, false, err
	}

	rootSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "frames-root" {
			rootSet = true
		}
	})

	cfg.MinSimilarity = *minSimilarity
	cfg.SharpnessFloor = *sharpnessFloor
	cfg.OutputSubdir = *outputSubdir
	cfg.StaleExt = *staleExt
	cfg.Workers = *workers

	target := processing.Target{Root: *framesRoot, Dir: *framesDir}
	if target.Dir != "" && !rootSet {
		// A root inherited from the environment yields to an explicit dir.
		target.Root = ""
	}
	if (target.Root == "") == (target.Dir == "") {
		return target, false, false, errors.New("exactly one of -frames-root or -frames-dir is required")
	}
	cfg.FramesRoot = target.Root

	if err := cfg.Validate(); err != nil {
		return target, false, false, err
	}
	return target, *verbose, *record, nil
}
