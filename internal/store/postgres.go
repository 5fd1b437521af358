package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pilotjobs/internal/dedup"
	"pilotjobs/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS job_history (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID        NOT NULL,
	scraped_on  DATE        NOT NULL,
	dedup_key   TEXT        NOT NULL,
	source      TEXT        NOT NULL,
	raw_data    JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (scraped_on, dedup_key)
)`

// PostgresArchive keeps every day's jobs in the job_history table.
// One row per (scraped_on, dedup_key); re-running a day never duplicates.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresArchive constructs an archive over pool.
func NewPostgresArchive(pool *pgxpool.Pool) *PostgresArchive {
	return &PostgresArchive{pool: pool}
}

// EnsureSchema creates job_history when it does not exist.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create job_history: %w", err)
	}
	return nil
}

// Archive inserts jobs scraped on day, skipping rows already present.
// It returns how many rows were new.
func (a *PostgresArchive) Archive(ctx context.Context, runID, day string, jobs []model.Job) (int, error) {
	inserted := 0
	for _, job := range jobs {
		raw, err := json.Marshal(job)
		if err != nil {
			slog.Warn("archive: marshal job", "title", job.Title, "err", err)
			continue
		}

		tag, err := a.pool.Exec(ctx,
			`INSERT INTO job_history (run_id, scraped_on, dedup_key, source, raw_data)
			 VALUES ($1, $2::date, $3, $4, $5::jsonb)
			 ON CONFLICT (scraped_on, dedup_key) DO NOTHING`,
			runID, day, dedup.Key(job), job.Source, string(raw),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert job_history: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// Prune deletes archived days before cutoff and returns the number of rows removed.
func (a *PostgresArchive) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := a.pool.Exec(ctx,
		`DELETE FROM job_history WHERE scraped_on < $1::date`,
		cutoff.Format(DateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune job_history: %w", err)
	}
	return tag.RowsAffected(), nil
}
