// Package transport implements the Multi-Workspace Transport: dehydrating
// a workspace's owned and role-permitted documents into a central
// coordination repository, hydrating the shared folders it doesn't own as
// read-only mirrors, and reconciling the result back into the local
// projection cache (spec §4.7 "Multi-Workspace Transport").
package transport

import (
	"path/filepath"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/projection"
	"github.com/colliery-io/metis/internal/workspace"
	"github.com/colliery-io/metis/pkg/metis"
)

// defaultMaxRetries is N in spec §4.7's push-retry policy.
const defaultMaxRetries = 3

// Transport drives sync cycles for a single workspace against the central
// beacon its config.toml names. Grounded on the workspace package's
// Workspace{Root, Config, Store, logger} shape, generalized from a
// document-service bundle to a transport-cycle bundle. root is the
// workspace root (the directory containing .metis/), matching
// workspace.Workspace.Root — not the .metis directory itself.
type Transport struct {
	root       string
	cfg        *config.Config
	store      *projection.Store
	logger     metis.Logger
	maxRetries int
}

// metisRoot returns the host filesystem path of the workspace's .metis
// control directory.
func (t *Transport) metisRoot() string {
	return filepath.Join(t.root, workspace.MetisDir)
}

// Option configures an optional Transport dependency.
type Option func(*Transport)

// WithLogger attaches a logger; nil (the default) means no logging.
func WithLogger(logger metis.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// WithMaxRetries overrides the push-retry ceiling (default 3).
func WithMaxRetries(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxRetries = n
		}
	}
}

// NewTransport builds a Transport for the workspace rooted at root (the
// directory containing .metis/), the parsed config.toml governing it, and
// the projection Store to reconcile against.
func NewTransport(root string, cfg *config.Config, store *projection.Store, opts ...Option) *Transport {
	t := &Transport{root: root, cfg: cfg, store: store, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) log(msg string, kv ...any) {
	if t.logger != nil {
		t.logger.Info(msg, kv...)
	}
}

func (t *Transport) warn(msg string, kv ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, kv...)
	}
}

// Result reports the outcome of one sync cycle (spec §4.7 "Result").
type Result struct {
	Pulled     int
	Pushed     int
	Deleted    int
	RetryCount int
	Warnings   []string
	IsNoop     bool
}
