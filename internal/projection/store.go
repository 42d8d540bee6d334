package projection

import (
	"context"

	"github.com/uptrace/bun"
)

// Store bundles every repository over a single *bun.DB connection.
type Store struct {
	DB            *bun.DB
	Documents     *DocumentsRepo
	Relationships *RelationshipsRepo
	Tags          *TagsRepo
	Search        *SearchRepo
	Config        *ConfigRepo
	SyncRuns      *SyncRunsRepo
}

// OpenStore opens the SQLite database at path, migrates it, and returns a
// ready-to-use Store. Callers that need a fresh cache (the database is
// missing, corrupt, or deliberately discarded) can just call this again
// against a new path — the cache is never authoritative (spec §4.4).
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

// NewStore wraps an already-open, already-migrated *bun.DB.
func NewStore(db *bun.DB) *Store {
	return &Store{
		DB:            db,
		Documents:     NewDocumentsRepo(db),
		Relationships: NewRelationshipsRepo(db),
		Tags:          NewTagsRepo(db),
		Search:        NewSearchRepo(db),
		Config:        NewConfigRepo(db),
		SyncRuns:      NewSyncRunsRepo(db),
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
