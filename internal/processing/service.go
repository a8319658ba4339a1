// Package processing runs keyframe selection over documents and hands the
// results to storage, run tracking, the object mirror and the event bus.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kdimtricp/pagescan/internal/events"
	"github.com/kdimtricp/pagescan/internal/keyframe"
	"github.com/kdimtricp/pagescan/internal/metrics"
	"github.com/kdimtricp/pagescan/internal/models"
	"github.com/kdimtricp/pagescan/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidTarget = errors.New("exactly one of frames root or frames dir must be set")

// Writer persists a document's selection.
type Writer interface {
	WriteKeyframes(docDir string, frames []string) (string, error)
	OutputSubdir() string
}

type RunTracker interface {
	Create(ctx context.Context, run *models.Run) error
	Finish(ctx context.Context, run *models.Run) error
}

type Recorder interface {
	Record(ctx context.Context, result *models.DocumentResult, keyframes []models.KeyframeRecord) error
}

type Mirror interface {
	MirrorDocument(ctx context.Context, doc string, keyframes []string) error
}

type Notifier interface {
	PublishKeyframesReady(ctx context.Context, evt events.KeyframesReady) error
}

// Options holds the optional collaborators of a Service. Nil fields are
// skipped.
type Options struct {
	Workers  int
	Runs     RunTracker
	Recorder Recorder
	Mirror   Mirror
	Notifier Notifier
	Logger   *slog.Logger
}

type Service struct {
	grouper  *keyframe.Grouper
	writer   Writer
	workers  int
	runs     RunTracker
	recorder Recorder
	mirror   Mirror
	notifier Notifier
	logger   *slog.Logger
}

func NewService(grouper *keyframe.Grouper, writer Writer, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		grouper:  grouper,
		writer:   writer,
		workers:  opts.Workers,
		runs:     opts.Runs,
		recorder: opts.Recorder,
		mirror:   opts.Mirror,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// Target selects what a run processes: every document under Root, or the
// single document Dir.
type Target struct {
	Root string
	Dir  string
}

// Report summarises a run. Documents keep the order they were listed in.
type Report struct {
	Run       *models.Run
	Documents []models.DocumentResult
	Keyframes int
	Failures  int
}

// Run processes every document of target. A missing root or directory
// fails the run before any document is touched. Per-document failures are
// recorded in the report and joined into the returned error; the remaining
// documents are still processed.
func (s *Service) Run(ctx context.Context, target Target) (*Report, error) {
	docs, root, err := resolve(target)
	if err != nil {
		return nil, err
	}

	th := s.grouper.Thresholds()
	run := models.NewRun(root, th.MinSimilarity, th.SharpnessFloor, s.writer.OutputSubdir(), s.workers)
	log := s.logger.With("run_id", run.ID)

	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			log.Error("failed to record run", "error", err)
		}
	}

	log.Info("starting keyframe selection", "documents", len(docs), "workers", s.workers)

	results := make([]models.DocumentResult, len(docs))
	errs := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, dir := range docs {
		i, dir := i, dir
		g.Go(func() error {
			results[i], errs[i] = s.processDocument(ctx, run.ID, dir)
			return nil
		})
	}
	g.Wait()

	report := &Report{Run: run, Documents: results}
	var failures []error
	for i, res := range results {
		report.Keyframes += res.Keyframes
		if errs[i] != nil {
			report.Failures++
			failures = append(failures, fmt.Errorf("%s: %w", res.Document, errs[i]))
		}
	}

	run.Finish(len(docs), report.Keyframes, report.Failures)
	if s.runs != nil {
		if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
			log.Error("failed to record run completion", "error", err)
		}
	}

	log.Info("keyframe selection finished",
		"documents", len(docs),
		"keyframes", report.Keyframes,
		"failures", report.Failures,
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, errors.Join(failures...)
}

func resolve(target Target) ([]string, string, error) {
	switch {
	case (target.Root == "") == (target.Dir == ""):
		return nil, "", ErrInvalidTarget
	case target.Root != "":
		docs, err := storage.ListDocuments(target.Root)
		if err != nil {
			return nil, "", err
		}
		return docs, target.Root, nil
	default:
		info, err := os.Stat(target.Dir)
		if err != nil || !info.IsDir() {
			return nil, "", fmt.Errorf("%w: %s", storage.ErrRootNotFound, target.Dir)
		}
		return []string{target.Dir}, filepath.Dir(target.Dir), nil
	}
}

// ProcessDocument selects and writes the keyframes of one document
// directory. The returned error is also stored in the result.
func (s *Service) ProcessDocument(ctx context.Context, runID, dir string) (models.DocumentResult, error) {
	return s.processDocument(ctx, runID, dir)
}

func (s *Service) processDocument(ctx context.Context, runID, dir string) (models.DocumentResult, error) {
	doc := filepath.Base(dir)
	ctx, span := otel.Tracer("processing").Start(ctx, "Service.ProcessDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("document", doc),
	)

	metrics.ActiveDocuments.Inc()
	defer metrics.ActiveDocuments.Dec()

	start := time.Now()
	log := s.logger.With("document", doc)
	result := models.DocumentResult{
		RunID:    runID,
		Document: doc,
		Dir:      dir,
	}

	keyframes, err := s.selectAndWrite(ctx, &result, log)
	result.DurationMs = time.Since(start).Milliseconds()
	metrics.DocumentDuration.Observe(time.Since(start).Seconds())

	status := "completed"
	switch {
	case err != nil:
		status = "failed"
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("document failed", "error", err)
	case result.Keyframes == 0:
		status = "empty"
	}
	metrics.DocumentsProcessedTotal.WithLabelValues(status).Inc()

	if s.recorder != nil {
		if rerr := s.recorder.Record(context.WithoutCancel(ctx), &result, keyframes); rerr != nil {
			log.Error("failed to record document result", "error", rerr)
		}
	}

	return result, err
}

func (s *Service) selectAndWrite(ctx context.Context, result *models.DocumentResult, log *slog.Logger) ([]models.KeyframeRecord, error) {
	frames, err := storage.ListFrames(result.Dir)
	if err != nil {
		return nil, err
	}

	sel, err := s.grouper.Group(ctx, frames)
	result.Scanned = sel.Scanned
	result.Skipped = sel.Skipped
	metrics.FramesScannedTotal.Add(float64(sel.Scanned))
	metrics.FramesSkippedTotal.Add(float64(sel.Skipped))
	if err != nil {
		return nil, err
	}
	if sel.Skipped > 0 {
		log.Warn("unreadable frames skipped", "count", sel.Skipped, "frames", sel.SkippedPaths)
	}

	if sel.Empty() {
		log.Info("no keyframes selected", "frames", sel.Scanned, "skipped", sel.Skipped)
		return nil, nil
	}

	outDir, err := s.writer.WriteKeyframes(result.Dir, sel.Paths())
	if err != nil {
		return nil, fmt.Errorf("failed to write keyframes: %w", err)
	}
	result.OutputDir = outDir
	result.Keyframes = len(sel.Keyframes)

	records := make([]models.KeyframeRecord, len(sel.Keyframes))
	names := make([]string, len(sel.Keyframes))
	written := make([]string, len(sel.Keyframes))
	for i, k := range sel.Keyframes {
		name := filepath.Base(k.Path)
		names[i] = name
		written[i] = filepath.Join(outDir, name)
		records[i] = models.KeyframeRecord{
			Ordinal:       i,
			Filename:      name,
			Sharpness:     k.Sharpness,
			SegmentFrames: k.Frames,
			Fallback:      k.Fallback,
		}
		rule := "sharpest"
		if k.Fallback {
			rule = "fallback"
		}
		metrics.KeyframesSelectedTotal.WithLabelValues(rule).Inc()
	}

	log.Info("saved keyframes",
		"keyframes", result.Keyframes,
		"frames", sel.Scanned,
		"skipped", sel.Skipped,
		"output", outDir,
	)

	if s.mirror != nil {
		if err := s.mirror.MirrorDocument(ctx, result.Document, written); err != nil {
			return records, fmt.Errorf("failed to mirror keyframes: %w", err)
		}
	}

	if s.notifier != nil {
		err := s.notifier.PublishKeyframesReady(ctx, events.KeyframesReady{
			RunID:     result.RunID,
			Document:  result.Document,
			OutputDir: outDir,
			Keyframes: names,
		})
		if err != nil {
			return records, fmt.Errorf("failed to publish keyframes ready: %w", err)
		}
	}

	return records, nil
}
