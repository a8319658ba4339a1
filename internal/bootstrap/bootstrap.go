// Package bootstrap wires the configured collaborators of the keyframe
// service for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/kdimtricp/pagescan/internal/database"
	"github.com/kdimtricp/pagescan/internal/events"
	"github.com/kdimtricp/pagescan/internal/imaging"
	"github.com/kdimtricp/pagescan/internal/keyframe"
	"github.com/kdimtricp/pagescan/internal/objectstore"
	"github.com/kdimtricp/pagescan/internal/processing"
	"github.com/kdimtricp/pagescan/internal/storage"
	"github.com/kdimtricp/pagescan/internal/tracing"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Components struct {
	Storage *storage.LocalStorage
	Service *processing.Service
	DB      *database.DB
	Runs    *database.RunRepository
	Results *database.ResultRepository

	closers []func() error
}

// Close releases everything Build opened, in reverse order.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Build assembles the service from cfg. Run tracking is enabled when
// record is set; the object mirror and the event publisher when their
// endpoints are configured. Tracing failures are logged and ignored.
func Build(ctx context.Context, cfg *config.Config, record bool, logger *slog.Logger) (*Components, error) {
	c := &Components{
		Storage: storage.NewLocalStorage(cfg.FramesRoot, cfg.OutputSubdir, cfg.StaleExt),
	}
	opts := processing.Options{
		Workers: cfg.Workers,
		Logger:  logger,
	}

	tp, err := tracing.InitTracer(ctx, cfg.OTELExporterEndpoint)
	if err != nil {
		logger.Warn("tracing init failed, continuing without tracing", "error", err)
	} else if tp != nil {
		c.closers = append(c.closers, func() error { return tp.Shutdown(context.Background()) })
	}

	if record {
		db, err := database.NewDB(cfg.Database())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		c.closers = append(c.closers, db.Close)

		if err := db.RunMigrations(ctx, cfg.Migrations); err != nil {
			c.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		c.DB = db
		c.Runs = database.NewRunRepository(db)
		c.Results = database.NewResultRepository(db)
		opts.Runs = c.Runs
		opts.Recorder = c.Results
	}

	if cfg.MinIOEndpoint != "" {
		mirror, err := objectstore.NewMinIOMirror(objectstore.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
			Prefix:    cfg.MinIOPrefix,
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		if err := mirror.EnsureBucket(ctx); err != nil {
			c.Close()
			return nil, err
		}
		opts.Mirror = mirror
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		c.closers = append(c.closers, conn.Close)

		pub, err := events.NewPublisher(conn, cfg.RabbitMQExchange)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, pub.Close)
		opts.Notifier = pub
	}

	grouper := keyframe.NewGrouper(imaging.Default(), cfg.Thresholds(), logger)
	c.Service = processing.NewService(grouper, c.Storage, opts)
	return c, nil
}
