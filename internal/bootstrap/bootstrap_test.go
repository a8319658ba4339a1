package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/kdimtricp/pagescan/internal/processing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.FramesRoot = t.TempDir()
	cfg.DBType = "sqlite"
	cfg.DBPath = filepath.Join(t.TempDir(), "runs.db")
	cfg.MinIOEndpoint = ""
	cfg.RabbitMQURL = ""
	cfg.OTELExporterEndpoint = ""
	return cfg
}

func TestBuildWithoutRecording(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := Build(context.Background(), cfg, false, logger)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Service)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.Runs)
	assert.Equal(t, filepath.Join("doc", "keyframes"), c.Storage.OutputDir("doc"))
}

func TestBuildWithRecording(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.FramesRoot, "empty"), 0755))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := Build(context.Background(), cfg, true, logger)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Runs)
	report, err := c.Service.Run(context.Background(), processing.Target{Root: cfg.FramesRoot})
	require.NoError(t, err)

	runs, err := c.Runs.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.Run.ID, runs[0].ID)
	assert.NoError(t, c.Close())
}

func TestBuildBadDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBType = "oracle"
	_, err := Build(context.Background(), cfg, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
