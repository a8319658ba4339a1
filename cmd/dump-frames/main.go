package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kdimtricp/pagescan/internal/framedump"
	"github.com/kdimtricp/pagescan/internal/logging"
)

func main() {
	var (
		video      = flag.String("video", "", "Video of the filmed book")
		framesRoot = flag.String("frames-root", ".", "Directory receiving the document directory")
		document   = flag.String("document", "", "Document name (defaults to the video file name)")
		fps        = flag.Float64("fps", 2, "Frames sampled per second")
		format     = flag.String("format", "jpg", "Frame image format")
		maxWidth   = flag.Int("max-width", 0, "Scale frames down to this width (0 keeps the source size)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := logging.ParseLevel(os.Getenv("LOG_LEVEL"))
	if *verbose {
		level = logging.ParseLevel("debug")
	}
	log := logging.Setup(level)

	if *video == "" {
		log.Error("please provide the video with -video")
		os.Exit(2)
	}

	doc := *document
	if doc == "" {
		doc = strings.TrimSuffix(filepath.Base(*video), filepath.Ext(*video))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := framedump.NewExtractor(framedump.Options{FPS: *fps, Format: *format, MaxWidth: *maxWidth}, log)
	if err != nil {
		log.Error("failed to initialise extractor", "error", err)
		os.Exit(1)
	}

	outDir := filepath.Join(*framesRoot, doc)
	res, err := e.Dump(ctx, *video, outDir)
	if err != nil {
		log.Error("frame dump failed", "error", err)
		os.Exit(1)
	}
	log.Info("document ready", "document", doc, "dir", outDir, "frames", len(res.Frames))
}
