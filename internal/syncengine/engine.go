// Package syncengine reconciles a workspace's Markdown files with its
// projection cache: importing files the cache has never seen, detecting
// files that moved or were deleted out from under it, resolving short-code
// collisions, and recovering allocation counters from what's actually on
// disk (spec §4.6 "Sync Engine (Single-Workspace)").
package syncengine

import (
	"github.com/colliery-io/metis/internal/projection"
	"github.com/colliery-io/metis/pkg/metis"
)

// Result classifies the outcome of reconciling one file against the
// projection.
type Result string

const (
	Imported   Result = "imported"
	Updated    Result = "updated"
	Deleted    Result = "deleted"
	UpToDate   Result = "up_to_date"
	NotFound   Result = "not_found"
	ErrorState Result = "error"
	Moved      Result = "moved"
	Renumbered Result = "renumbered"
)

// Entry reports what happened to a single file during a directory sync.
type Entry struct {
	FilePath  string
	ShortCode string
	Result    Result

	// MovedFrom/MovedTo and RenumberedFrom/RenumberedTo are set only for
	// the Result they name.
	MovedFrom       string
	MovedTo         string
	RenumberedFrom  string
	RenumberedTo    string

	Err error
}

// DirectoryReport summarizes a full directory sync.
type DirectoryReport struct {
	Entries []Entry
	Counts  map[Result]int
}

func (r *DirectoryReport) record(e Entry) {
	r.Entries = append(r.Entries, e)
	if r.Counts == nil {
		r.Counts = map[Result]int{}
	}
	r.Counts[e.Result]++
}

// Engine reconciles the tree rooted at Root (the workspace's .metis
// control directory) against Store. Grounded on the teacher's
// Importer{content, pages, logger} shape (internal/markdown/importer.go),
// generalized from a CMS content sink to a filesystem-cache reconciler.
type Engine struct {
	root   string
	store  *projection.Store
	logger metis.Logger
}

// Option configures an optional Engine dependency.
type Option func(*Engine)

// WithLogger attaches a logger; nil (the default) means no logging.
func WithLogger(logger metis.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an Engine over the tree rooted at root (typically a
// workspace's .metis directory) and the projection Store to reconcile it
// against.
func NewEngine(root string, store *projection.Store, opts ...Option) *Engine {
	e := &Engine{root: root, store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}
