// Package projection implements the Metis projection cache: a SQLite
// database (accessed through uptrace/bun) that mirrors the filesystem for
// fast lookup, hierarchy traversal, and full-text search. The cache is
// never authoritative — it is rebuilt from the filesystem whenever it is
// missing, stale, or found to have drifted (see internal/syncengine).
package projection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// DocumentRow is one row of the documents table: the projection's record
// of a single Markdown document (spec §4.4).
type DocumentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	FilePath        string `bun:"filepath,pk"`
	ID              string `bun:"id,notnull"`
	ShortCode       string `bun:"short_code,notnull"`
	Title           string `bun:"title,notnull"`
	DocumentType    string `bun:"document_type,notnull"`
	Phase           string `bun:"phase,notnull"`
	Archived        bool   `bun:"archived,notnull,default:false"`
	ParentID        string `bun:"parent_id"`
	StrategyID      string `bun:"strategy_id"`
	InitiativeID    string `bun:"initiative_id"`
	CreatedAt       string `bun:"created_at,notnull"`
	UpdatedAt       string `bun:"updated_at,notnull"`
	ExitCriteriaMet bool   `bun:"exit_criteria_met,notnull,default:false"`
	FileHash        string `bun:"file_hash,notnull"`
}

// RelationshipRow is one denormalized parent->child edge.
type RelationshipRow struct {
	bun.BaseModel `bun:"table:document_relationships,alias:r"`

	ParentID       string `bun:"parent_id,notnull"`
	ChildID        string `bun:"child_id,notnull"`
	ParentFilePath string `bun:"parent_filepath,notnull"`
	ChildFilePath  string `bun:"child_filepath,notnull"`
}

// TagRow is one (document, tag) pair.
type TagRow struct {
	bun.BaseModel `bun:"table:document_tags,alias:t"`

	DocumentFilePath string `bun:"document_filepath,notnull"`
	Tag              string `bun:"tag,notnull"`
}

// ConfigRow is a key/value row in the configuration table: workspace
// settings and short-code counters share this table (spec §4.4).
type ConfigRow struct {
	bun.BaseModel `bun:"table:configuration,alias:c"`

	Key       string `bun:"key,pk"`
	Value     string `bun:"value,notnull"`
	UpdatedAt string `bun:"updated_at,notnull"`
}

// SyncRunRow is one audit entry for a Multi-Workspace Transport sync cycle
// (spec §4.7 "Sync cycle"). ID is an internal lease-scoped identifier for
// this run, distinct from any document's external short code.
type SyncRunRow struct {
	bun.BaseModel `bun:"table:sync_runs,alias:sr"`

	ID         string `bun:"id,pk"`
	Prefix     string `bun:"prefix,notnull"`
	StartedAt  string `bun:"started_at,notnull"`
	FinishedAt string `bun:"finished_at"`
	Outcome    string `bun:"outcome,notnull"`
	Pulled     int    `bun:"pulled,notnull,default:0"`
	Pushed     int    `bun:"pushed,notnull,default:0"`
	RetryCount int    `bun:"retry_count,notnull,default:0"`
	Error      string `bun:"error"`
}

// searchSchema creates the FTS5 virtual table. bun has no abstraction for
// virtual tables, so this is raw SQL, matching the teacher's own practice
// of dropping to db.ExecContext for anything outside its repository
// vocabulary (index DDL, ad hoc migrations).
const searchSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS document_search USING fts5(
	filepath UNINDEXED,
	title,
	content,
	document_type UNINDEXED,
	tokenize = 'porter unicode61'
);
`

// Open opens (or creates) a SQLite database at path and wraps it as a
// *bun.DB. _txlock=immediate makes bun.DB.RunInTx acquire a write lock at
// BEGIN rather than at first write, which is what the counter-generation
// path (config_repo.go) needs to avoid a lost-update race between
// concurrent short-code allocations. journal_mode=WAL, synchronous=NORMAL,
// and a 5s busy_timeout are the shared-resource policy spec §5 requires so
// a second process touching the same workspace observes BUSY-and-retry
// rather than a hard failure.
func Open(path string) (*bun.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?cache=shared&_txlock=immediate&_fk=1&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000",
		path,
	)
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("projection: open %s: %w", path, err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates every table (and the FTS5 index) if it doesn't already
// exist. Safe to call on every startup.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*DocumentRow)(nil),
		(*RelationshipRow)(nil),
		(*TagRow)(nil),
		(*ConfigRow)(nil),
		(*SyncRunRow)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("projection: create table for %T: %w", model, err)
		}
	}
	if _, err := db.ExecContext(ctx, searchSchema); err != nil {
		return fmt.Errorf("projection: create document_search: %w", err)
	}
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_documents_short_code ON documents(short_code)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_id ON documents(id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_parent_id ON documents(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_strategy_id ON documents(strategy_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_parent ON document_relationships(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_child ON document_relationships(child_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_filepath ON document_tags(document_filepath)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_prefix ON sync_runs(prefix)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("projection: create index: %w", err)
		}
	}
	return nil
}
