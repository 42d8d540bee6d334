package projection

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/colliery-io/metis/internal/merr"
)

// TagsRepo wraps the document_tags table.
type TagsRepo struct {
	db *bun.DB
}

func NewTagsRepo(db *bun.DB) *TagsRepo {
	return &TagsRepo{db: db}
}

// Replace swaps the full tag set for a document atomically.
func (r *TagsRepo) Replace(ctx context.Context, filepath string, tags []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*TagRow)(nil)).
			Where("document_filepath = ?", filepath).Exec(ctx); err != nil {
			return merr.WrapProjection(err, "clear tags for "+filepath)
		}
		if len(tags) == 0 {
			return nil
		}
		rows := make([]*TagRow, 0, len(tags))
		for _, tag := range tags {
			rows = append(rows, &TagRow{DocumentFilePath: filepath, Tag: tag})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return merr.WrapProjection(err, "insert tags for "+filepath)
		}
		return nil
	})
}

// ForDocument returns every tag attached to filepath.
func (r *TagsRepo) ForDocument(ctx context.Context, filepath string) ([]string, error) {
	var rows []*TagRow
	if err := r.db.NewSelect().Model(&rows).Where("document_filepath = ?", filepath).Scan(ctx); err != nil {
		return nil, merr.WrapProjection(err, "list tags for "+filepath)
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.Tag
	}
	return out, nil
}

// Delete removes every tag row for filepath.
func (r *TagsRepo) Delete(ctx context.Context, filepath string) error {
	if _, err := r.db.NewDelete().Model((*TagRow)(nil)).
		Where("document_filepath = ?", filepath).Exec(ctx); err != nil {
		return merr.WrapProjection(err, "delete tags for "+filepath)
	}
	return nil
}
