package projection

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/colliery-io/metis/internal/merr"
)

// RelationshipsRepo wraps the document_relationships table.
type RelationshipsRepo struct {
	db *bun.DB
}

func NewRelationshipsRepo(db *bun.DB) *RelationshipsRepo {
	return &RelationshipsRepo{db: db}
}

// Set records (or replaces) the single parent edge owned by childFilePath.
func (r *RelationshipsRepo) Set(ctx context.Context, row *RelationshipRow) error {
	if _, err := r.db.NewDelete().Model((*RelationshipRow)(nil)).
		Where("child_filepath = ?", row.ChildFilePath).Exec(ctx); err != nil {
		return merr.WrapProjection(err, "clear relationship for "+row.ChildFilePath)
	}
	if row.ParentID == "" {
		return nil
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return merr.WrapProjection(err, "set relationship for "+row.ChildFilePath)
	}
	return nil
}

// Clear removes the edge owned by childFilePath, leaving the document
// parentless (used when a parent level is disabled or on reassignment to
// the backlog).
func (r *RelationshipsRepo) Clear(ctx context.Context, childFilePath string) error {
	if _, err := r.db.NewDelete().Model((*RelationshipRow)(nil)).
		Where("child_filepath = ?", childFilePath).Exec(ctx); err != nil {
		return merr.WrapProjection(err, "clear relationship for "+childFilePath)
	}
	return nil
}

// Children returns every edge whose parent is parentFilePath.
func (r *RelationshipsRepo) Children(ctx context.Context, parentFilePath string) ([]*RelationshipRow, error) {
	var rows []*RelationshipRow
	err := r.db.NewSelect().Model(&rows).Where("parent_filepath = ?", parentFilePath).Scan(ctx)
	if err != nil {
		return nil, merr.WrapProjection(err, "find relationship children of "+parentFilePath)
	}
	return rows, nil
}

// Parent returns the edge owned by childFilePath, or nil if it is a root.
func (r *RelationshipsRepo) Parent(ctx context.Context, childFilePath string) (*RelationshipRow, error) {
	row := new(RelationshipRow)
	err := r.db.NewSelect().Model(row).Where("child_filepath = ?", childFilePath).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, merr.WrapProjection(err, "find relationship parent of "+childFilePath)
	}
	return row, nil
}
