package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kdimtricp/pagescan/internal/database"
	"github.com/kdimtricp/pagescan/internal/models"
	"github.com/kdimtricp/pagescan/internal/processing"
	"github.com/kdimtricp/pagescan/internal/storage"
)

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// App carries the dependencies of the HTTP handlers. Runs and Results are
// nil when run tracking is disabled.
type App struct {
	Service    *processing.Service
	Storage    storage.KeyframeStore
	Runs       *database.RunRepository
	Results    *database.ResultRepository
	FramesRoot string
	Logger     *slog.Logger

	running sync.Mutex
}

type startRunRequest struct {
	Document string `json:"document,omitempty"`
}

type runResponse struct {
	Run       *models.Run             `json:"run"`
	Documents []models.DocumentResult `json:"documents"`
	Keyframes int                     `json:"keyframes"`
	Failures  int                     `json:"failures"`
	Error     string                  `json:"error,omitempty"`
}

// StartRunHandler runs a batch over the frames root, or over one document
// when the body names it. Only one batch runs at a time.
func (app *App) StartRunHandler(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	target := processing.Target{Root: app.FramesRoot}
	if req.Document != "" {
		dir, err := app.Storage.DocumentDir(req.Document)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid document name")
			return
		}
		target = processing.Target{Dir: dir}
	}

	if !app.running.TryLock() {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	defer app.running.Unlock()

	report, err := app.Service.Run(r.Context(), target)
	if report == nil {
		switch {
		case errors.Is(err, storage.ErrRootNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, processing.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			app.logger().Error("run failed", "error", err)
			writeError(w, http.StatusInternalServerError, "run failed")
		}
		return
	}

	resp := runResponse{
		Run:       report.Run,
		Documents: report.Documents,
		Keyframes: report.Keyframes,
		Failures:  report.Failures,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if app.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run tracking is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := app.Runs.List(r.Context(), limit)
	if err != nil {
		app.logger().Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (app *App) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	if app.Runs == nil || app.Results == nil {
		writeError(w, http.StatusServiceUnavailable, "run tracking is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := app.Runs.GetByID(r.Context(), id)
	if errors.Is(err, database.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		app.logger().Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	results, err := app.Results.ListByRun(r.Context(), id)
	if err != nil {
		app.logger().Error("failed to list document results", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if results == nil {
		results = []*models.DocumentResult{}
	}

	writeJSON(w, http.StatusOK, struct {
		*models.Run
		Results []*models.DocumentResult `json:"results"`
	}{run, results})
}

type keyframeFile struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

func (app *App) ListKeyframesHandler(w http.ResponseWriter, r *http.Request) {
	files, err := app.Storage.ListKeyframes(chi.URLParam(r, "doc"))
	if err != nil {
		app.storageError(w, err)
		return
	}

	out := make([]keyframeFile, len(files))
	for i, f := range files {
		out[i] = keyframeFile{Filename: f.Filename, Size: f.Size, ModTime: f.ModTime}
	}
	writeJSON(w, http.StatusOK, out)
}

func (app *App) ServeKeyframeHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	file, err := app.Storage.OpenKeyframe(chi.URLParam(r, "doc"), name)
	if err != nil {
		app.storageError(w, err)
		return
	}
	defer file.Close()

	var modTime time.Time
	if st, ok := file.(interface{ Stat() (os.FileInfo, error) }); ok {
		if info, err := st.Stat(); err == nil {
			modTime = info.ModTime()
		}
	}

	http.ServeContent(w, r, name, modTime, file)
}

type pruneRequest struct {
	Keep []string `json:"keep"`
}

// PruneKeyframesHandler deletes every keyframe of the document that the
// reviewer did not keep.
func (app *App) PruneKeyframesHandler(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Keep == nil {
		writeError(w, http.StatusBadRequest, "keep list is required")
		return
	}

	doc := chi.URLParam(r, "doc")
	removed, err := app.Storage.PruneKeyframes(doc, req.Keep)
	if err != nil {
		app.storageError(w, err)
		return
	}

	app.logger().Info("pruned keyframes", "document", doc, "removed", removed, "kept", len(req.Keep))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (app *App) storageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, "invalid path")
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, "not found")
	default:
		app.logger().Error("storage error", "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
	}
}

func (app *App) logger() *slog.Logger {
	if app.Logger == nil {
		return slog.Default()
	}
	return app.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
