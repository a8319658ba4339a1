package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.92, cfg.MinSimilarity)
	assert.Equal(t, 0.1, cfg.SharpnessFloor)
	assert.Equal(t, "keyframes", cfg.OutputSubdir)
	assert.Equal(t, ".jpg", cfg.StaleExt)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "sqlite", cfg.Database().Type)
	assert.NoError(t, cfg.Validate())

	th := cfg.Thresholds()
	assert.Equal(t, 0.92, th.MinSimilarity)
	assert.Equal(t, 0.1, th.SharpnessFloor)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("KEYFRAMES_MIN_SIMILARITY", "0.85")
	t.Setenv("KEYFRAMES_WORKERS", "4")
	t.Setenv("DB_TYPE", "postgres")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.MinSimilarity)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "postgres", cfg.Database().Type)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KEYFRAMES_OUTPUT_SUBDIR=selected\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("KEYFRAMES_OUTPUT_SUBDIR") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "selected", cfg.OutputSubdir)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("KEYFRAMES_WORKERS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.MinSimilarity = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SharpnessFloor = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.MinSimilarity = math.NaN()
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SharpnessFloor = math.NaN()
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.OutputSubdir = ""
	assert.Error(t, cfg.Validate())
}
