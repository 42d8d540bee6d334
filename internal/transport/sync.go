package transport

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/merr"
	"github.com/colliery-io/metis/internal/syncengine"
)

// configBlobKey mirrors workspace.Recover's configuration-table row
// holding the raw config.toml text, so a sync cycle's updated
// last_synced_commit round-trips the same way configuration recovery
// does.
const configBlobKey = "workspace.config.toml"

// Options configures a single sync cycle.
type Options struct {
	// Force bypasses the host-repository freshness precheck (spec §4.7
	// step 2).
	Force bool
}

// Sync runs one complete sync cycle (spec §4.7 "Sync cycle
// (orchestration)"): read upstream config, freshness precheck, fetch,
// hydrate, dehydrate, push (with retry), record last_synced_commit,
// rebuild the projection.
func (t *Transport) Sync(ctx context.Context, opts Options) (*Result, error) {
	if !t.cfg.HasSync {
		// Single-workspace mode: nothing to synchronize against.
		return &Result{IsNoop: true}, nil
	}

	stale, err := checkHostFreshness(ctx, t.root, t.cfg.Workspace.Prefix)
	if err != nil {
		return nil, merr.WrapTransport(err, "check host freshness")
	}
	if stale && !opts.Force {
		return nil, merr.WrapTransport(merr.ErrFreshnessFailed, "sync")
	}

	runID, err := t.store.SyncRuns.Start(ctx, t.cfg.Workspace.Prefix)
	if err != nil {
		t.warn("failed to record sync run start", "error", err)
	}
	result, runErr := t.runSyncCycle(ctx, opts)
	if runID != "" {
		pulled, pushed, retries := 0, 0, 0
		if result != nil {
			pulled, pushed, retries = result.Pulled, result.Pushed, result.RetryCount
		}
		if err := t.store.SyncRuns.Finish(ctx, runID, pulled, pushed, retries, runErr); err != nil {
			t.warn("failed to record sync run outcome", "error", err)
		}
	}
	return result, runErr
}

// runSyncCycle drives the nine-step cycle itself, separated from Sync so
// the audit-log bookkeeping in Sync wraps the whole attempt including any
// error it returns.
func (t *Transport) runSyncCycle(ctx context.Context, opts Options) (*Result, error) {
	gc, err := newGitContext(ctx, t.cfg.Sync.UpstreamURL)
	if err != nil {
		return nil, merr.WrapTransport(err, "establish git context")
	}
	defer gc.cleanup()

	result := &Result{}
	owned := ownedCentralPrefixes(t.cfg)
	metisRoot := t.metisRoot()

	_, empty, err := gc.fetch(ctx)
	if err != nil {
		return nil, merr.WrapTransport(err, "fetch")
	}
	if !empty {
		pulled, warnings, err := hydrate(gc, metisRoot, owned)
		if err != nil {
			return nil, merr.WrapTransport(err, "hydrate")
		}
		result.Pulled = pulled
		result.Warnings = append(result.Warnings, warnings...)
	}

	rows, err := t.store.Documents.ListAll(ctx, false)
	if err != nil {
		return nil, merr.WrapTransport(err, "list local documents")
	}
	plan, err := BuildDehydrationPlan(t.cfg, metisRoot, rows)
	if err != nil {
		return nil, merr.WrapTransport(err, "build dehydration plan")
	}

	written, err := dehydrate(gc, t.cfg, plan)
	if err != nil {
		return nil, merr.WrapTransport(err, "dehydrate")
	}
	result.Pushed = written

	if written > 0 {
		changed, err := gc.commit(ctx, fmt.Sprintf("sync %s", t.cfg.Workspace.Prefix))
		if err != nil {
			return nil, merr.WrapTransport(err, "commit")
		}
		if changed {
			if err := t.pushWithRetry(ctx, gc, owned, plan, result); err != nil {
				return nil, err
			}
		}
	}

	if result.Pulled == 0 && result.Pushed == 0 && result.RetryCount == 0 {
		result.IsNoop = true
	}

	head, err := gc.head(ctx)
	if err == nil && head != "" {
		t.cfg.Sync.LastSyncedCommit = head
		if err := t.persistConfig(ctx); err != nil {
			t.warn("sync completed but failed to persist last_synced_commit", "error", err)
		}
	}

	engine := syncengine.NewEngine(metisRoot, t.store, syncengine.WithLogger(t.logger))
	if _, err := engine.DirectorySync(ctx); err != nil {
		return nil, merr.WrapTransport(err, "rebuild projection")
	}

	return result, nil
}

// pushWithRetry implements spec §4.7's push-retry: on rejection, re-fetch,
// re-stage the same plan onto the new HEAD (the content is disjoint by
// folder, so no merge logic is needed), and retry up to maxRetries times.
func (t *Transport) pushWithRetry(ctx context.Context, gc *gitContext, owned []string, plan *DehydrationPlan, result *Result) error {
	for attempt := 0; ; attempt++ {
		rejected, err := gc.push(ctx)
		if err != nil {
			return merr.WrapTransport(err, "push")
		}
		if !rejected {
			return nil
		}
		if attempt >= t.maxRetries {
			return merr.WrapTransport(&merr.RetriesExhaustedError{Prefix: t.cfg.Workspace.Prefix, Attempts: attempt + 1}, "push")
		}

		result.RetryCount++
		if _, _, err := gc.fetch(ctx); err != nil {
			return merr.WrapTransport(err, "refetch before retry")
		}
		if _, err := dehydrate(gc, t.cfg, plan); err != nil {
			return merr.WrapTransport(err, "re-stage dehydration")
		}
		if _, err := gc.commit(ctx, fmt.Sprintf("sync %s (retry %d)", t.cfg.Workspace.Prefix, result.RetryCount)); err != nil {
			return merr.WrapTransport(err, "re-commit")
		}
	}
}

func (t *Transport) persistConfig(ctx context.Context) error {
	raw, err := config.Marshal(t.cfg)
	if err != nil {
		return err
	}
	if err := fsdal.Write(filepath.Join(t.metisRoot(), "config.toml"), raw); err != nil {
		return err
	}
	return t.store.Config.Set(ctx, configBlobKey, string(raw))
}
