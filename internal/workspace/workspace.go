// Package workspace implements the Metis workspace services: initializing
// and detecting a workspace, creating/validating/discovering documents,
// driving phase transitions, and archive/reassign/delete lifecycle
// operations (spec §4.5), plus configuration recovery (spec §4.5
// "Configuration recovery").
package workspace

import (
	"context"
	"fmt"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
	"github.com/colliery-io/metis/internal/projection"
	"github.com/colliery-io/metis/internal/template"
	"github.com/colliery-io/metis/pkg/metis"
)

// Workspace bundles the resources a workspace service needs: its root on
// disk, its parsed config.toml, the projection cache, and a template
// loader rooted at the workspace's override directory.
type Workspace struct {
	Root   string
	Config *config.Config
	Store  *projection.Store

	templates *template.Loader
	logger    metis.Logger
}

// Option configures optional Workspace dependencies, mirroring the
// teacher's ServiceOption pattern.
type Option func(*Workspace)

// WithLoggerProvider attaches a logger provider; workspace operations log
// under the "metis.workspace" namespace (internal/logging).
func WithLoggerProvider(provider metis.LoggerProvider) Option {
	return func(w *Workspace) {
		w.logger = logging.WorkspaceLogger(provider)
	}
}

// WithGlobalTemplateDir sets a user-global template override directory,
// the second link of the template fallback chain.
func WithGlobalTemplateDir(dir string) Option {
	return func(w *Workspace) {
		w.templates = template.NewLoader(templatesDir(w.Root), dir)
	}
}

// Open loads an already-initialized workspace rooted at root: it reads
// config.toml, opens (migrating if needed) the projection cache, and
// returns a ready-to-use Workspace. Use Initialize to create a new one.
func Open(ctx context.Context, root string, opts ...Option) (*Workspace, error) {
	if !metisDirExists(root) {
		return nil, fmt.Errorf("workspace: open %s: %w", root, merr.ErrWorkspaceNotInitialized)
	}

	cfg, err := readConfig(root)
	if err != nil {
		return nil, err
	}

	store, err := projection.OpenStore(ctx, dbPath(root))
	if err != nil {
		return nil, fmt.Errorf("workspace: open projection: %w", err)
	}

	w := &Workspace{
		Root:      root,
		Config:    cfg,
		Store:     store,
		templates: template.NewLoader(templatesDir(root), ""),
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close releases the workspace's projection connection.
func (w *Workspace) Close() error {
	return w.Store.Close()
}
