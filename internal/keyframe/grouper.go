package keyframe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ErrUnordered is returned when frames are not in ascending filename order.
var ErrUnordered = errors.New("frames are not sorted by filename")

// Measurer decodes and measures frames and compares their signatures.
type Measurer interface {
	Measure(path string) (Measurement, error)
	Similarity(reference, signature []float32) float64
}

// Selection is the outcome of one pass over a document's frames.
type Selection struct {
	Keyframes []Keyframe
	// Scanned counts every frame offered, readable or not.
	Scanned int
	// Skipped counts frames that could not be measured.
	Skipped      int
	SkippedPaths []string
}

func (s Selection) Empty() bool { return len(s.Keyframes) == 0 }

// Paths returns the selected frame paths in scan order.
func (s Selection) Paths() []string {
	paths := make([]string, len(s.Keyframes))
	for i, k := range s.Keyframes {
		paths[i] = k.Path
	}
	return paths
}

type Grouper struct {
	measurer   Measurer
	thresholds Thresholds
	logger     *slog.Logger
}

func NewGrouper(measurer Measurer, thresholds Thresholds, logger *slog.Logger) *Grouper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{
		measurer:   measurer,
		thresholds: thresholds,
		logger:     logger,
	}
}

func (g *Grouper) Thresholds() Thresholds {
	return g.thresholds
}

// Group scans frames once, in order, and returns one keyframe per segment.
// Frames that cannot be measured are skipped without affecting the open
// segment. The scan stops early only when ctx is cancelled.
func (g *Grouper) Group(ctx context.Context, frames []string) (Selection, error) {
	if err := CheckOrder(frames); err != nil {
		return Selection{}, err
	}

	var (
		sel     Selection
		current *Segment
	)

	for _, path := range frames {
		if err := ctx.Err(); err != nil {
			return sel, err
		}
		sel.Scanned++

		m, err := g.measurer.Measure(path)
		if err != nil {
			g.logger.Warn("skipping unreadable frame", "frame", path, "error", err)
			sel.Skipped++
			sel.SkippedPaths = append(sel.SkippedPaths, path)
			continue
		}

		if current == nil {
			seg := Open(0, path, m, g.thresholds)
			current = &seg
			continue
		}

		similarity := g.measurer.Similarity(current.Reference(), m.Signature)
		next, closed := current.Advance(path, m, similarity, g.thresholds)
		if closed != nil {
			g.logger.Debug("segment boundary",
				"frame", filepath.Base(path),
				"similarity", similarity,
				"kept", filepath.Base(closed.Path),
			)
			sel.Keyframes = append(sel.Keyframes, *closed)
		}
		current = &next
	}

	if current != nil {
		sel.Keyframes = append(sel.Keyframes, current.Close())
	}

	return sel, nil
}

// CheckOrder verifies that frames are strictly ascending by filename.
func CheckOrder(frames []string) error {
	for i := 1; i < len(frames); i++ {
		prev, cur := filepath.Base(frames[i-1]), filepath.Base(frames[i])
		if prev >= cur {
			return fmt.Errorf("%w: %q before %q", ErrUnordered, prev, cur)
		}
	}
	return nil
}
