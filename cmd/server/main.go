package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kdimtricp/pagescan/internal/api"
	"github.com/kdimtricp/pagescan/internal/bootstrap"
	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/kdimtricp/pagescan/internal/logging"
)

func main() {
	envFile := ".env"
	if v := os.Getenv("ENV_FILE"); v != "" {
		envFile = v
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		logging.New(logging.ParseLevel("info")).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logging.Setup(logging.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.FramesRoot == "" {
		log.Error("KEYFRAMES_FRAMES_ROOT is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(ctx, cfg, true, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	app := &api.App{
		Service:    c.Service,
		Storage:    c.Storage,
		Runs:       c.Runs,
		Results:    c.Results,
		FramesRoot: cfg.FramesRoot,
		Logger:     log,
	}

	srv, cancelRuns := newServer(":"+cfg.Port, api.NewRouter(app))

	log.Info("server starting",
		"port", cfg.Port,
		"frames_root", cfg.FramesRoot,
		"database", cfg.DBType,
		"min_similarity", cfg.MinSimilarity,
		"sharpness_floor", cfg.SharpnessFloor,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	if err := shutdown(srv, cancelRuns, 10*time.Second); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

// newServer returns a server whose request contexts are cancelled by the
// returned function, so a batch started over HTTP stops with the server.
func newServer(addr string, handler http.Handler) (*http.Server, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return base },
	}
	return srv, cancel
}

// shutdown cancels in-flight requests and waits for their handlers to
// return before the caller releases the database and brokers.
func shutdown(srv *http.Server, cancelRuns context.CancelFunc, timeout time.Duration) error {
	cancelRuns()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
