package projection

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/colliery-io/metis/internal/merr"
)

// DocumentsRepo wraps the documents table. It talks to *bun.DB directly —
// Metis's primary key is a filepath string and queries regularly need raw
// SQL (upserts, the FTS5 join) that a generic CRUD repository abstraction
// doesn't model.
type DocumentsRepo struct {
	db *bun.DB
}

func NewDocumentsRepo(db *bun.DB) *DocumentsRepo {
	return &DocumentsRepo{db: db}
}

// Upsert inserts row, or replaces the existing row at the same filepath.
func (r *DocumentsRepo) Upsert(ctx context.Context, row *DocumentRow) error {
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (filepath) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("short_code = EXCLUDED.short_code").
		Set("title = EXCLUDED.title").
		Set("document_type = EXCLUDED.document_type").
		Set("phase = EXCLUDED.phase").
		Set("archived = EXCLUDED.archived").
		Set("parent_id = EXCLUDED.parent_id").
		Set("strategy_id = EXCLUDED.strategy_id").
		Set("initiative_id = EXCLUDED.initiative_id").
		Set("updated_at = EXCLUDED.updated_at").
		Set("exit_criteria_met = EXCLUDED.exit_criteria_met").
		Set("file_hash = EXCLUDED.file_hash").
		Exec(ctx)
	if err != nil {
		return merr.WrapProjection(err, "upsert document "+row.FilePath)
	}
	return nil
}

// Get fetches the document row at filepath.
func (r *DocumentsRepo) Get(ctx context.Context, filepath string) (*DocumentRow, error) {
	row := new(DocumentRow)
	err := r.db.NewSelect().Model(row).Where("filepath = ?", filepath).Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, &merr.DocumentNotFoundError{FilePath: filepath})
	}
	return row, nil
}

// FindByShortCode fetches the document row with the given short code.
func (r *DocumentsRepo) FindByShortCode(ctx context.Context, code string) (*DocumentRow, error) {
	row := new(DocumentRow)
	err := r.db.NewSelect().Model(row).Where("short_code = ?", code).Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, &merr.DocumentNotFoundError{ShortCode: code})
	}
	return row, nil
}

// FindByID fetches the document row with the given DocumentId.
func (r *DocumentsRepo) FindByID(ctx context.Context, id string) (*DocumentRow, error) {
	row := new(DocumentRow)
	err := r.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, &merr.DocumentNotFoundError{})
	}
	return row, nil
}

// FindChildren returns every document whose parent_id is parentID,
// excluding archived documents unless includeArchived is set.
func (r *DocumentsRepo) FindChildren(ctx context.Context, parentID string, includeArchived bool) ([]*DocumentRow, error) {
	var rows []*DocumentRow
	q := r.db.NewSelect().Model(&rows).Where("parent_id = ?", parentID)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}
	if err := q.Order("filepath ASC").Scan(ctx); err != nil {
		return nil, merr.WrapProjection(err, "find children of "+parentID)
	}
	return rows, nil
}

// FindStrategyHierarchy returns every document under a given strategy_id
// (the strategy itself plus its initiatives and tasks).
func (r *DocumentsRepo) FindStrategyHierarchy(ctx context.Context, strategyID string) ([]*DocumentRow, error) {
	var rows []*DocumentRow
	err := r.db.NewSelect().Model(&rows).
		Where("strategy_id = ? OR id = ?", strategyID, strategyID).
		Order("filepath ASC").
		Scan(ctx)
	if err != nil {
		return nil, merr.WrapProjection(err, "find strategy hierarchy for "+strategyID)
	}
	return rows, nil
}

// ListAll returns every document row, optionally including archived ones.
func (r *DocumentsRepo) ListAll(ctx context.Context, includeArchived bool) ([]*DocumentRow, error) {
	var rows []*DocumentRow
	q := r.db.NewSelect().Model(&rows)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}
	if err := q.Order("filepath ASC").Scan(ctx); err != nil {
		return nil, merr.WrapProjection(err, "list documents")
	}
	return rows, nil
}

// Delete removes the document row at filepath.
func (r *DocumentsRepo) Delete(ctx context.Context, filepath string) error {
	res, err := r.db.NewDelete().Model((*DocumentRow)(nil)).Where("filepath = ?", filepath).Exec(ctx)
	if err != nil {
		return merr.WrapProjection(err, "delete document "+filepath)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return merr.WrapProjection(err, "delete document "+filepath)
	}
	if affected == 0 {
		return &merr.DocumentNotFoundError{FilePath: filepath}
	}
	return nil
}

// SetArchived sets the archived flag on every row whose filepath is in
// filepaths. Matching is exact: a row nested under a listed path is not
// touched unless its own filepath is listed too.
func (r *DocumentsRepo) SetArchived(ctx context.Context, filepaths []string, archived bool) error {
	if len(filepaths) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*DocumentRow)(nil)).
		Set("archived = ?", archived).
		Where("filepath IN (?)", bun.In(filepaths)).
		Exec(ctx)
	if err != nil {
		return merr.WrapProjection(err, "set archived")
	}
	return nil
}

func notFoundOr(err error, notFound error) error {
	if isNoRows(err) {
		return notFound
	}
	return merr.WrapProjection(err, "query document")
}
