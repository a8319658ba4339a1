// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/kdimtricp/pagescan/internal/database"
	"github.com/kdimtricp/pagescan/internal/keyframe"
)

type Config struct {
	MinSimilarity  float64 `env:"KEYFRAMES_MIN_SIMILARITY"  envDefault:"0.92"`
	SharpnessFloor float64 `env:"KEYFRAMES_SHARPNESS_FLOOR" envDefault:"0.1"`
	FramesRoot     string  `env:"KEYFRAMES_FRAMES_ROOT"`
	OutputSubdir   string  `env:"KEYFRAMES_OUTPUT_SUBDIR"   envDefault:"keyframes"`
	StaleExt       string  `env:"KEYFRAMES_STALE_EXT"       envDefault:".jpg"`
	Workers        int     `env:"KEYFRAMES_WORKERS"         envDefault:"1"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBType     string `env:"DB_TYPE"     envDefault:"sqlite"`
	DBPath     string `env:"DB_PATH"     envDefault:"./pagescan.db"`
	DBHost     string `env:"DB_HOST"     envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT"     envDefault:"5432"`
	DBUser     string `env:"DB_USER"     envDefault:"pagescan"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"pagescan_dev"`
	DBName     string `env:"DB_NAME"     envDefault:"pagescan"`
	Migrations string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"MINIO_BUCKET"     envDefault:"keyframes"`
	MinIOPrefix    string `env:"MINIO_PREFIX"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"pagescan.keyframes"`

	Port                 string `env:"PORT"                   envDefault:"8080"`
	OTELExporterEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`
}

// Load reads envPath (ignored when missing) and parses the environment.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Thresholds() keyframe.Thresholds {
	return keyframe.Thresholds{
		MinSimilarity:  c.MinSimilarity,
		SharpnessFloor: c.SharpnessFloor,
	}
}

func (c *Config) Database() database.Config {
	return database.Config{
		Type:       c.DBType,
		Host:       c.DBHost,
		Port:       c.DBPort,
		User:       c.DBUser,
		Password:   c.DBPassword,
		Name:       c.DBName,
		SQLitePath: c.DBPath,
	}
}

// Validate checks the values that have no safe interpretation.
func (c *Config) Validate() error {
	if math.IsNaN(c.MinSimilarity) || c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return fmt.Errorf("min similarity %v outside [-1, 1]", c.MinSimilarity)
	}
	if math.IsNaN(c.SharpnessFloor) || c.SharpnessFloor < 0 {
		return fmt.Errorf("sharpness floor %v is negative", c.SharpnessFloor)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.OutputSubdir == "" {
		return errors.New("output subdirectory is empty")
	}
	return nil
}
