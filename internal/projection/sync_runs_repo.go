package projection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/colliery-io/metis/internal/merr"
)

// Sync run outcomes recorded in the sync_runs audit table (spec §4.7).
const (
	SyncRunStarted   = "started"
	SyncRunCompleted = "completed"
	SyncRunFailed    = "failed"
)

// SyncRunsRepo wraps the sync_runs table: an append-mostly audit log of
// Multi-Workspace Transport cycles, keyed by an internal lease identifier
// rather than any document's external short code.
type SyncRunsRepo struct {
	db *bun.DB
}

func NewSyncRunsRepo(db *bun.DB) *SyncRunsRepo {
	return &SyncRunsRepo{db: db}
}

// Start records the beginning of a sync cycle for prefix and returns the
// run's internal ID, used by Finish to close it out.
func (r *SyncRunsRepo) Start(ctx context.Context, prefix string) (string, error) {
	row := &SyncRunRow{
		ID:        uuid.NewString(),
		Prefix:    prefix,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Outcome:   SyncRunStarted,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return "", merr.WrapProjection(err, "start sync run")
	}
	return row.ID, nil
}

// Finish records the outcome of the run id started with Start. syncErr is
// nil for a successful cycle (including a no-op).
func (r *SyncRunsRepo) Finish(ctx context.Context, id string, pulled, pushed, retries int, syncErr error) error {
	outcome := SyncRunCompleted
	errMsg := ""
	if syncErr != nil {
		outcome = SyncRunFailed
		errMsg = syncErr.Error()
	}
	_, err := r.db.NewUpdate().Model((*SyncRunRow)(nil)).
		Set("finished_at = ?", time.Now().UTC().Format(time.RFC3339Nano)).
		Set("outcome = ?", outcome).
		Set("pulled = ?", pulled).
		Set("pushed = ?", pushed).
		Set("retry_count = ?", retries).
		Set("error = ?", errMsg).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return merr.WrapProjection(err, "finish sync run "+id)
	}
	return nil
}

// Recent returns the most recent limit sync runs for prefix, newest first.
func (r *SyncRunsRepo) Recent(ctx context.Context, prefix string, limit int) ([]*SyncRunRow, error) {
	var rows []*SyncRunRow
	err := r.db.NewSelect().Model(&rows).
		Where("prefix = ?", prefix).
		OrderExpr("started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, merr.WrapProjection(err, "list sync runs for "+prefix)
	}
	return rows, nil
}
