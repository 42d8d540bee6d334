package workspace

import (
	"context"
	"fmt"
	"os"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
	"github.com/colliery-io/metis/internal/projection"
	"github.com/colliery-io/metis/internal/template"
)

func metisDirExists(root string) bool {
	info, err := os.Stat(metisRoot(root))
	return err == nil && info.IsDir()
}

func readConfig(root string) (*config.Config, error) {
	data, err := fsdal.Read(configPath(root))
	if err != nil {
		return nil, fmt.Errorf("workspace: read config.toml: %w", err)
	}
	return config.Parse(data)
}

// InitOptions controls workspace Initialization (spec §4.5).
type InitOptions struct {
	Prefix    string
	Mode      config.Mode
	Title     string
	Force     bool
}

// Initialize creates a new workspace rooted at root: the .metis control
// directory, config.toml, an empty (migrated) projection cache, and a
// starter Vision document. Fails with ErrWorkspaceAlreadyExists unless
// opts.Force is set, in which case the existing .metis is replaced.
func Initialize(ctx context.Context, root string, opts InitOptions) (*Workspace, error) {
	if metisDirExists(root) && !opts.Force {
		return nil, fmt.Errorf("workspace: initialize %s: %w", root, merr.ErrWorkspaceAlreadyExists)
	}
	if opts.Force && metisDirExists(root) {
		if err := os.RemoveAll(metisRoot(root)); err != nil {
			return nil, fmt.Errorf("workspace: force re-init: remove %s: %w", metisRoot(root), err)
		}
	}

	cfg := config.Default(opts.Prefix)
	switch opts.Mode {
	case config.ModeStreamlined:
		cfg.FlightLevels.StrategiesEnabled = false
	case config.ModeDirect:
		cfg.FlightLevels.StrategiesEnabled = false
		cfg.FlightLevels.InitiativesEnabled = false
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("workspace: initialize: %w", err)
	}

	if err := os.MkdirAll(metisRoot(root), 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", metisRoot(root), err)
	}

	tomlBytes, err := config.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("workspace: marshal config.toml: %w", err)
	}
	if err := fsdal.Write(configPath(root), tomlBytes); err != nil {
		return nil, fmt.Errorf("workspace: write config.toml: %w", err)
	}

	store, err := projection.OpenStore(ctx, dbPath(root))
	if err != nil {
		return nil, fmt.Errorf("workspace: create projection: %w", err)
	}

	w := &Workspace{
		Root:      root,
		Config:    cfg,
		Store:     store,
		templates: template.NewLoader(templatesDir(root), ""),
		logger:    logging.NoOp(),
	}

	title := opts.Title
	if title == "" {
		title = opts.Prefix + " Vision"
	}
	if _, err := w.Create(ctx, CreateRequest{
		Type:  document.TypeVision,
		Title: title,
		Context: map[string]string{
			"summary": "Describe the long-term direction this workspace serves.",
		},
	}); err != nil {
		store.Close()
		return nil, err
	}
	return w, nil
}
