package workspace

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/merr"
	"github.com/colliery-io/metis/internal/projection"
)

// configBlobKey is the configuration-table row holding the raw config.toml
// text, used to reconcile the file and the database in either direction.
const configBlobKey = "workspace.config.toml"

// RecoveryReport describes what Recover changed (spec §4.5
// "Configuration recovery", step 4).
type RecoveryReport struct {
	ConfigSynthesized bool
	DatabaseSeeded    bool
	CountersRaised    map[string]uint32 // "PREFIX:LETTER" -> highest suffix on disk (counter raised to it if lower)
}

// Recover reconciles config.toml with the database on startup: synthesizing
// a missing config.toml from the database, seeding an empty database from
// config.toml, and recomputing short-code counters from what's actually on
// disk so they never regress (spec §4.5 "Configuration recovery").
func Recover(ctx context.Context, root string) (*RecoveryReport, error) {
	if !metisDirExists(root) {
		return nil, fmt.Errorf("workspace: recover %s: %w", root, merr.ErrWorkspaceNotInitialized)
	}

	store, err := projection.OpenStore(ctx, dbPath(root))
	if err != nil {
		return nil, fmt.Errorf("workspace: recover: open projection: %w", err)
	}
	defer store.Close()

	report := &RecoveryReport{CountersRaised: map[string]uint32{}}

	fileBytes, fileErr := fsdal.Read(configPath(root))
	blob, hasBlob, err := store.Config.Get(ctx, configBlobKey)
	if err != nil {
		return nil, fmt.Errorf("workspace: recover: read config blob: %w", err)
	}

	switch {
	case fileErr != nil && hasBlob:
		if err := fsdal.Write(configPath(root), []byte(blob)); err != nil {
			return nil, fmt.Errorf("workspace: recover: synthesize config.toml: %w", err)
		}
		report.ConfigSynthesized = true
	case fileErr != nil && !hasBlob:
		return nil, fmt.Errorf("workspace: recover: %w: no config.toml and no database record to restore it from", merr.ErrRecoveryNeeded)
	case fileErr == nil && !hasBlob:
		if _, err := config.Parse(fileBytes); err != nil {
			return nil, fmt.Errorf("workspace: recover: %w", err)
		}
		if err := store.Config.Set(ctx, configBlobKey, string(fileBytes)); err != nil {
			return nil, fmt.Errorf("workspace: recover: seed database: %w", err)
		}
		report.DatabaseSeeded = true
	}

	if _, err := readConfig(root); err != nil {
		return nil, fmt.Errorf("workspace: recover: %w", err)
	}

	observed, err := observedCounters(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: recover: scan short codes: %w", err)
	}
	for key, max := range observed {
		parts := strings.SplitN(key, ":", 2)
		if err := store.Config.SetCounterIfLower(ctx, parts[0], parts[1], max); err != nil {
			return nil, fmt.Errorf("workspace: recover: raise counter %s: %w", key, err)
		}
		report.CountersRaised[key] = max
	}

	return report, nil
}

// observedCounters scans every Markdown file under root for a short code
// and returns the maximum numeric suffix seen per "PREFIX:LETTER" key.
func observedCounters(root string) (map[string]uint32, error) {
	files, err := fsdal.Walk(metisRoot(root))
	if err != nil {
		return nil, err
	}

	maxes := map[string]uint32{}
	for _, rel := range files {
		raw, err := fsdal.Read(abs(root, document.FilePath(rel)))
		if err != nil {
			continue
		}
		doc, err := document.Parse(document.FilePath(rel), raw)
		if err != nil || doc.ShortCode == "" {
			continue
		}
		parts := strings.Split(string(doc.ShortCode), "-")
		if len(parts) != 3 {
			continue
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		key := parts[0] + ":" + parts[1]
		if uint32(n) > maxes[key] {
			maxes[key] = uint32(n)
		}
	}
	return maxes, nil
}
