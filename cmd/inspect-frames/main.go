package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/kdimtricp/pagescan/internal/database"
	"github.com/kdimtricp/pagescan/internal/imaging"
	"github.com/kdimtricp/pagescan/internal/keyframe"
	"github.com/kdimtricp/pagescan/internal/storage"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	var (
		dir            = flag.String("dir", "", "Document directory whose frames are measured")
		minSimilarity  = flag.Float64("min-similarity", cfg.MinSimilarity, "Boundary threshold used for the split column")
		sharpnessFloor = flag.Float64("sharpness-floor", cfg.SharpnessFloor, "Floor used for the eligible column")
		runs           = flag.Int("runs", 0, "Show the N most recent recorded runs instead")
	)
	flag.Parse()

	switch {
	case *runs > 0:
		if err := showRuns(context.Background(), os.Stdout, cfg.Database(), *runs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case *dir != "":
		th := keyframe.Thresholds{MinSimilarity: *minSimilarity, SharpnessFloor: *sharpnessFloor}
		if err := inspect(os.Stdout, imaging.Default(), *dir, th); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "Please provide -dir or -runs")
		flag.Usage()
		os.Exit(2)
	}
}

// inspect prints the sharpness of every frame and its similarity to the
// previous readable frame, marking where a boundary would fall if the
// previous frame were the segment reference.
func inspect(w io.Writer, m keyframe.Measurer, dir string, th keyframe.Thresholds) error {
	frames, err := storage.ListFrames(dir)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tSHARPNESS\tELIGIBLE\tSIMILARITY\tSPLIT")

	var prev []float32
	readable, splits := 0, 0
	for _, frame := range frames {
		name := filepath.Base(frame)
		meas, err := m.Measure(frame)
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\tunreadable: %v\n", name, err)
			continue
		}
		readable++

		eligible := "no"
		if meas.Sharpness >= th.SharpnessFloor {
			eligible = "yes"
		}

		sim, split := "-", ""
		if prev != nil {
			s := m.Similarity(prev, meas.Signature)
			sim = fmt.Sprintf("%.4f", s)
			if s < th.MinSimilarity {
				split = "*"
				splits++
			}
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n", name, meas.Sharpness, eligible, sim, split)
		prev = meas.Signature
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d frames, %d readable, %d consecutive splits\n", len(frames), readable, splits)
	return nil
}

func showRuns(ctx context.Context, w io.Writer, dbConfig database.Config, limit int) error {
	db, err := database.NewDB(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runs, err := database.NewRunRepository(db).List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tROOT\tDOCUMENTS\tKEYFRAMES\tFAILURES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Root, r.Documents, r.Keyframes, r.Failures)
	}
	return tw.Flush()
}
