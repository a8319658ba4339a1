// Package framedump turns a filmed book into a document directory of
// ordered frames using ffmpeg.
package framedump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kdimtricp/pagescan/internal/storage"
)

var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

type Options struct {
	// FPS is the number of frames sampled per second of video.
	FPS float64
	// Format is the image extension of the dumped frames.
	Format string
	// MaxWidth scales frames down to at most this width; 0 keeps the
	// source size.
	MaxWidth int
}

type Result struct {
	Frames   []string
	Duration float64
}

type Extractor struct {
	ffmpegPath  string
	ffprobePath string
	opts        Options
	logger      *slog.Logger
}

func NewExtractor(opts Options, logger *slog.Logger) (*Extractor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}
	// ffprobe is optional; without it the duration is reported as zero.
	ffprobePath, _ := exec.LookPath("ffprobe")

	if opts.FPS <= 0 {
		opts.FPS = 2
	}
	opts.Format = strings.TrimPrefix(opts.Format, ".")
	if opts.Format == "" {
		opts.Format = "jpg"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		opts:        opts,
		logger:      logger,
	}, nil
}

// Args builds the ffmpeg arguments that dump videoPath into outputDir.
// Frame numbers are zero padded so that name order is capture order.
func Args(videoPath, outputDir string, opts Options) []string {
	filter := "fps=" + strconv.FormatFloat(opts.FPS, 'f', -1, 64)
	if opts.MaxWidth > 0 {
		filter += fmt.Sprintf(",scale='min(%d,iw)':-2", opts.MaxWidth)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", filter,
	}
	if opts.Format == "jpg" || opts.Format == "jpeg" {
		args = append(args, "-q:v", "2")
	}
	return append(args, "-y", filepath.Join(outputDir, "frame_%06d."+opts.Format))
}

// Dump writes the sampled frames of videoPath into outputDir and returns
// them in capture order.
func (e *Extractor) Dump(ctx context.Context, videoPath, outputDir string) (*Result, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file not accessible: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	duration, err := e.duration(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not get video duration", "video", videoPath, "error", err)
	}

	args := Args(videoPath, outputDir, e.opts)
	e.logger.Debug("running ffmpeg", "path", e.ffmpegPath, "args", args)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	frames, err := storage.ListFrames(outputDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s", videoPath)
	}

	e.logger.Info("frames extracted",
		"video", filepath.Base(videoPath),
		"frames", len(frames),
		"duration", duration,
	)
	return &Result{Frames: frames, Duration: duration}, nil
}

func (e *Extractor) duration(ctx context.Context, videoPath string) (float64, error) {
	if e.ffprobePath == "" {
		return 0, errors.New("ffprobe not found in PATH")
	}
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
