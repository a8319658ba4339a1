package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesScannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagescan_frames_scanned_total",
		Help: "Total number of frames offered to the grouper",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagescan_frames_skipped_total",
		Help: "Total number of frames that could not be decoded",
	})

	KeyframesSelectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagescan_keyframes_selected_total",
		Help: "Total number of keyframes selected, by selection rule",
	}, []string{"rule"})

	DocumentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagescan_documents_processed_total",
		Help: "Total number of documents processed, by status",
	}, []string{"status"})

	DocumentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagescan_document_duration_seconds",
		Help:    "Duration of keyframe selection for one document",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	ActiveDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagescan_active_documents",
		Help: "Number of documents currently being processed",
	})
)
