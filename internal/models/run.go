package models

import (
	"time"

	"github.com/google/uuid"
)

// Run is one invocation of keyframe extraction over one or more documents.
type Run struct {
	ID             string     `json:"id"`
	Root           string     `json:"root"`
	MinSimilarity  float64    `json:"min_similarity"`
	SharpnessFloor float64    `json:"sharpness_floor"`
	OutputSubdir   string     `json:"output_subdir"`
	Workers        int        `json:"workers"`
	Documents      int        `json:"documents"`
	Keyframes      int        `json:"keyframes"`
	Failures       int        `json:"failures"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func NewRun(root string, minSimilarity, sharpnessFloor float64, outputSubdir string, workers int) *Run {
	return &Run{
		ID:             uuid.New().String(),
		Root:           root,
		MinSimilarity:  minSimilarity,
		SharpnessFloor: sharpnessFloor,
		OutputSubdir:   outputSubdir,
		Workers:        workers,
		StartedAt:      time.Now(),
	}
}

func (r *Run) Finish(documents, keyframes, failures int) {
	now := time.Now()
	r.Documents = documents
	r.Keyframes = keyframes
	r.Failures = failures
	r.FinishedAt = &now
}

// DocumentResult is the outcome of processing one document directory.
type DocumentResult struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Document   string    `json:"document"`
	Dir        string    `json:"dir"`
	OutputDir  string    `json:"output_dir,omitempty"`
	Scanned    int       `json:"scanned"`
	Skipped    int       `json:"skipped"`
	Keyframes  int       `json:"keyframes"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func (d DocumentResult) Failed() bool {
	return d.Error != ""
}

// KeyframeRecord is one selected frame of a document.
type KeyframeRecord struct {
	ID            string  `json:"id"`
	RunID         string  `json:"run_id"`
	Document      string  `json:"document"`
	Ordinal       int     `json:"ordinal"`
	Filename      string  `json:"filename"`
	Sharpness     float64 `json:"sharpness"`
	SegmentFrames int     `json:"segment_frames"`
	Fallback      bool    `json:"fallback"`
}
