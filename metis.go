// Package metis is the top-level façade over the workspace, sync, and
// transport services: a single entry point for host applications (CLI,
// daemon, editor plugin) that want to open a workspace and drive its
// document and synchronization operations without reaching into internal
// packages directly.
package metis

import (
	"context"
	"path/filepath"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/syncengine"
	"github.com/colliery-io/metis/internal/transport"
	"github.com/colliery-io/metis/internal/workspace"
	metisiface "github.com/colliery-io/metis/pkg/metis"
)

// DocumentService, in the teacher's naming convention, would be a type
// alias over the package that owns document lifecycle operations. Metis
// keeps those operations on Workspace directly rather than behind a
// separate service interface, so the aliases below exist to give host code
// a stable import surface without reaching into internal/workspace.
type (
	// CreateRequest describes a new document to add to the workspace.
	CreateRequest = workspace.CreateRequest
	// CreateResult reports the document Create produced.
	CreateResult = workspace.CreateResult
	// ReassignRequest describes a task's new parent or backlog bucket.
	ReassignRequest = workspace.ReassignRequest
	// ReassignResult reports the outcome of Reassign.
	ReassignResult = workspace.ReassignResult
	// TransitionResult reports the outcome of a phase Transition.
	TransitionResult = workspace.TransitionResult
	// ValidationResult reports Validate's structural findings.
	ValidationResult = workspace.ValidationResult
	// ArchiveResult reports the subtree Archive moved.
	ArchiveResult = workspace.ArchiveResult
	// DeleteResult reports the row and file Delete removed.
	DeleteResult = workspace.DeleteResult
	// RecoveryReport reports what Recover synthesized or raised.
	RecoveryReport = workspace.RecoveryReport
	// BacklogCategory buckets an unparented task (spec §3 Task).
	BacklogCategory = workspace.BacklogCategory

	// SyncResult reports a directory-level reconciliation (spec §4.6).
	SyncResult = syncengine.DirectoryReport
	// Discrepancy is one mismatch Verify finds between disk and projection.
	Discrepancy = syncengine.Discrepancy

	// TransportResult reports one multi-workspace sync cycle (spec §4.7).
	TransportResult = transport.Result
	// TransportOptions configures a single sync cycle.
	TransportOptions = transport.Options

	// Logger is the leveled logging contract host applications implement.
	Logger = metisiface.Logger
	// LoggerProvider hands out named loggers by module.
	LoggerProvider = metisiface.LoggerProvider
)

// Module bundles an opened workspace with its optional transport, mirroring
// the teacher's runtime façade: one object a host builds once at startup
// and holds for the life of the process.
type Module struct {
	ws        *workspace.Workspace
	transport *transport.Transport
}

// Option configures optional Module dependencies.
type Option func(*moduleOptions)

type moduleOptions struct {
	loggerProvider LoggerProvider
	globalTplDir   string
	maxRetries     int
}

// WithLoggerProvider attaches a logger provider; workspace and transport
// operations each log under their own namespace (spec §6 "Logging").
// Module.DirectorySync and Module.Verify run the sync engine without a
// logger.
func WithLoggerProvider(provider LoggerProvider) Option {
	return func(o *moduleOptions) { o.loggerProvider = provider }
}

// WithGlobalTemplateDir sets a user-global document template override
// directory, the second link of the template fallback chain (spec §4.5
// "Template resolution").
func WithGlobalTemplateDir(dir string) Option {
	return func(o *moduleOptions) { o.globalTplDir = dir }
}

// WithMaxSyncRetries overrides the push-retry ceiling used by Sync
// (default 3, spec §4.7 "push-retry policy").
func WithMaxSyncRetries(n int) Option {
	return func(o *moduleOptions) { o.maxRetries = n }
}

// Open loads an already-initialized workspace rooted at root. Use
// Initialize to create a new one first.
func Open(ctx context.Context, root string, opts ...Option) (*Module, error) {
	resolved := resolveOptions(opts)

	wsOpts := []workspace.Option{}
	if resolved.loggerProvider != nil {
		wsOpts = append(wsOpts, workspace.WithLoggerProvider(resolved.loggerProvider))
	}
	if resolved.globalTplDir != "" {
		wsOpts = append(wsOpts, workspace.WithGlobalTemplateDir(resolved.globalTplDir))
	}

	ws, err := workspace.Open(ctx, root, wsOpts...)
	if err != nil {
		return nil, err
	}

	return newModule(ws, resolved), nil
}

// Initialize creates a new workspace rooted at root and returns a Module
// for it (spec §4.5 "Initialize").
func Initialize(ctx context.Context, root string, opts workspace.InitOptions, moduleOpts ...Option) (*Module, error) {
	ws, err := workspace.Initialize(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	return newModule(ws, resolveOptions(moduleOpts)), nil
}

func resolveOptions(opts []Option) moduleOptions {
	resolved := moduleOptions{}
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

func newModule(ws *workspace.Workspace, resolved moduleOptions) *Module {
	m := &Module{ws: ws}

	var transportOpts []transport.Option
	if resolved.loggerProvider != nil {
		transportOpts = append(transportOpts, transport.WithLogger(transportLogger(resolved.loggerProvider)))
	}
	if resolved.maxRetries > 0 {
		transportOpts = append(transportOpts, transport.WithMaxRetries(resolved.maxRetries))
	}
	m.transport = transport.NewTransport(ws.Root, ws.Config, ws.Store, transportOpts...)

	return m
}

// Close releases the module's projection connection.
func (m *Module) Close() error {
	return m.ws.Close()
}

// Workspace exposes the underlying workspace for advanced integrations not
// covered by Module's forwarding methods.
func (m *Module) Workspace() *workspace.Workspace {
	return m.ws
}

// Transport exposes the underlying transport for advanced integrations.
func (m *Module) Transport() *transport.Transport {
	return m.transport
}

// Create adds a new document to the workspace (spec §4.5 "Create").
func (m *Module) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	return m.ws.Create(ctx, req)
}

// Validate checks a single document's structural integrity (spec §4.5
// "Validate").
func (m *Module) Validate(ctx context.Context, rel string) (*ValidationResult, error) {
	return m.ws.Validate(ctx, document.FilePath(rel))
}

// Transition advances a document to targetPhase (spec §4.5 "Transition").
func (m *Module) Transition(ctx context.Context, shortCode, targetPhase string) (*TransitionResult, error) {
	return m.ws.Transition(ctx, shortCode, targetPhase)
}

// Archive moves a document (and its subtree, for Strategy/Initiative) into
// the archived/ mirror (spec §4.5 "Archive").
func (m *Module) Archive(ctx context.Context, shortCode string) (*ArchiveResult, error) {
	return m.ws.Archive(ctx, shortCode)
}

// Reassign moves a task to a new parent or backlog bucket (spec §4.5
// "Reassign").
func (m *Module) Reassign(ctx context.Context, shortCode string, req ReassignRequest) (*ReassignResult, error) {
	return m.ws.Reassign(ctx, shortCode, req)
}

// Delete removes a document's file and projection row (spec §4.5
// "Delete").
func (m *Module) Delete(ctx context.Context, shortCode string) (*DeleteResult, error) {
	return m.ws.Delete(ctx, shortCode)
}

// Discover resolves a short code to its current file path, falling back to
// a full filesystem walk when the projection is stale (spec §4.5
// "Discover").
func (m *Module) Discover(ctx context.Context, shortCode string) (string, error) {
	rel, err := m.ws.Discover(ctx, shortCode)
	if err != nil {
		return "", err
	}
	return string(rel), nil
}

// Sync runs one Multi-Workspace Transport cycle: fetch, hydrate, dehydrate,
// push, and rebuild the projection (spec §4.7 "Sync cycle"). It is a noop
// returning TransportResult.IsNoop for a workspace with no [sync] section.
func (m *Module) Sync(ctx context.Context, opts TransportOptions) (*TransportResult, error) {
	return m.transport.Sync(ctx, opts)
}

// Recover reconciles a workspace's config.toml with the copy held in its
// projection database: it restores a missing config.toml from that copy,
// seeds the database from config.toml when the copy is absent, and raises
// per-type short-code counters to the maxima found in the documents on
// disk (spec §4.5 "Configuration recovery"). It fails when config.toml and
// the database copy are both missing.
func Recover(ctx context.Context, root string) (*RecoveryReport, error) {
	return workspace.Recover(ctx, root)
}

// Detect walks upward from startDir looking for a .metis control
// directory, returning the workspace root it finds (spec §4.5 "Detect").
func Detect(startDir string) (string, error) {
	return workspace.Detect(startDir)
}

// DirectorySync reconciles the workspace's projection cache against its
// filesystem contents in both directions: new and changed files are
// imported, rows whose files vanished are dropped, short-code collisions
// introduced by filesystem copies are renumbered (spec §4.6 "Directory
// sync"). Sync already runs this as its final step; call it directly when
// no transport is configured.
func (m *Module) DirectorySync(ctx context.Context) (*SyncResult, error) {
	engine := syncengine.NewEngine(m.metisRoot(), m.ws.Store)
	return engine.DirectorySync(ctx)
}

// Verify compares every on-disk document and every projected row without
// changing either side, reporting what a DirectorySync would fix (spec
// §4.6 "Verification").
func (m *Module) Verify(ctx context.Context) ([]Discrepancy, error) {
	engine := syncengine.NewEngine(m.metisRoot(), m.ws.Store)
	return engine.Verify(ctx)
}

func (m *Module) metisRoot() string {
	return filepath.Join(m.ws.Root, workspace.MetisDir)
}

func transportLogger(provider LoggerProvider) Logger {
	return provider.GetLogger("metis.transport")
}
