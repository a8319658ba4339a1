package main

import (
	"testing"

	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestParseFlags(t *testing.T) {
	cfg := loadConfig(t)
	target, verbose, record, err := parseFlags(cfg, []string{
		"-frames-root", "/scans",
		"-min-similarity", "0.8",
		"-sharpness-floor", "2.5",
		"-workers", "3",
		"-output-subdir", "picked",
		"-verbose",
	})
	require.NoError(t, err)

	assert.Equal(t, "/scans", target.Root)
	assert.Empty(t, target.Dir)
	assert.True(t, verbose)
	assert.False(t, record)
	assert.Equal(t, 0.8, cfg.MinSimilarity)
	assert.Equal(t, 2.5, cfg.SharpnessFloor)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "picked", cfg.OutputSubdir)
	assert.Equal(t, "/scans", cfg.FramesRoot)
}

func TestParseFlagsTargets(t *testing.T) {
	_, _, _, err := parseFlags(loadConfig(t), nil)
	assert.Error(t, err, "no target")

	_, _, _, err = parseFlags(loadConfig(t), []string{"-frames-root", "/a", "-frames-dir", "/b"})
	assert.Error(t, err, "both targets")

	cfg := loadConfig(t)
	cfg.FramesRoot = "/from-env"
	target, _, _, err := parseFlags(cfg, []string{"-frames-dir", "/scans/book"})
	require.NoError(t, err)
	assert.Equal(t, "/scans/book", target.Dir)
	assert.Empty(t, target.Root)
}

func TestParseFlagsValidation(t *testing.T) {
	_, _, _, err := parseFlags(loadConfig(t), []string{"-frames-root", "/a", "-workers", "0"})
	assert.Error(t, err)

	_, _, _, err = parseFlags(loadConfig(t), []string{"-frames-root", "/a", "-min-similarity", "3"})
	assert.Error(t, err)

	_, _, _, err = parseFlags(loadConfig(t), []string{"-frames-root", "/a", "-min-similarity", "NaN"})
	assert.Error(t, err)

	_, _, _, err = parseFlags(loadConfig(t), []string{"-frames-root", "/a", "-sharpness-floor", "NaN"})
	assert.Error(t, err)

	_, _, _, err = parseFlags(loadConfig(t), []string{"-unknown"})
	assert.Error(t, err)
}
