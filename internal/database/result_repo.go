package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kdimtricp/pagescan/internal/models"
)

// ResultRepository stores per-document outcomes and the keyframes they kept.
type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Record stores a document result together with its keyframes in one
// transaction.
func (r *ResultRepository) Record(ctx context.Context, result *models.DocumentResult, keyframes []models.KeyframeRecord) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_results (
			id, run_id, document, dir, output_dir, scanned, skipped,
			keyframes, error, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		result.ID,
		result.RunID,
		result.Document,
		result.Dir,
		result.OutputDir,
		result.Scanned,
		result.Skipped,
		result.Keyframes,
		result.Error,
		result.DurationMs,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document result: %w", err)
	}

	for i := range keyframes {
		k := &keyframes[i]
		if k.ID == "" {
			k.ID = uuid.New().String()
		}
		k.RunID = result.RunID
		k.Document = result.Document

		_, err = tx.ExecContext(ctx, `
			INSERT INTO keyframes (
				id, run_id, document, ordinal, filename, sharpness,
				segment_frames, fallback
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			k.ID,
			k.RunID,
			k.Document,
			k.Ordinal,
			k.Filename,
			k.Sharpness,
			k.SegmentFrames,
			k.Fallback,
		)
		if err != nil {
			return fmt.Errorf("failed to insert keyframe %s: %w", k.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document result: %w", err)
	}
	return nil
}

func (r *ResultRepository) ListByRun(ctx context.Context, runID string) ([]*models.DocumentResult, error) {
	query := `
		SELECT id, run_id, document, dir, output_dir, scanned, skipped,
			   keyframes, error, duration_ms, created_at
		FROM document_results
		WHERE run_id = $1
		ORDER BY document`

	rows, err := r.db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query document results: %w", err)
	}
	defer rows.Close()

	var results []*models.DocumentResult
	for rows.Next() {
		res := &models.DocumentResult{}
		err := rows.Scan(
			&res.ID,
			&res.RunID,
			&res.Document,
			&res.Dir,
			&res.OutputDir,
			&res.Scanned,
			&res.Skipped,
			&res.Keyframes,
			&res.Error,
			&res.DurationMs,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document result: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

func (r *ResultRepository) KeyframesByRun(ctx context.Context, runID, document string) ([]models.KeyframeRecord, error) {
	query := `
		SELECT id, run_id, document, ordinal, filename, sharpness,
			   segment_frames, fallback
		FROM keyframes
		WHERE run_id = $1 AND document = $2
		ORDER BY ordinal`

	rows, err := r.db.conn.QueryContext(ctx, query, runID, document)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyframes: %w", err)
	}
	defer rows.Close()

	var keyframes []models.KeyframeRecord
	for rows.Next() {
		var k models.KeyframeRecord
		if err := rows.Scan(
			&k.ID,
			&k.RunID,
			&k.Document,
			&k.Ordinal,
			&k.Filename,
			&k.Sharpness,
			&k.SegmentFrames,
			&k.Fallback,
		); err != nil {
			return nil, fmt.Errorf("failed to scan keyframe: %w", err)
		}
		keyframes = append(keyframes, k)
	}

	return keyframes, rows.Err()
}

func (r *ResultRepository) DeleteByRun(ctx context.Context, runID string) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM keyframes WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete keyframes: %w", err)
	}
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM document_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete document results: %w", err)
	}
	return nil
}
