package projection

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"github.com/colliery-io/metis/internal/merr"
)

// SearchRepo wraps the document_search FTS5 virtual table.
type SearchRepo struct {
	db *bun.DB
}

func NewSearchRepo(db *bun.DB) *SearchRepo {
	return &SearchRepo{db: db}
}

type searchRow struct {
	FilePath     string `bun:"filepath"`
	Title        string `bun:"title"`
	Content      string `bun:"content"`
	DocumentType string `bun:"document_type"`
}

// Index replaces the indexed text for filepath. FTS5 permits filtering a
// DELETE by an UNINDEXED column (a full scan, acceptable at workspace
// scale), so re-indexing is delete-then-insert rather than an in-place
// UPDATE.
func (r *SearchRepo) Index(ctx context.Context, filepath, title, content, documentType string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Table("document_search").Where("filepath = ?", filepath).Exec(ctx); err != nil {
			return merr.WrapProjection(err, "unindex "+filepath)
		}
		row := &searchRow{FilePath: filepath, Title: title, Content: content, DocumentType: documentType}
		if _, err := tx.NewInsert().Model(row).Table("document_search").Exec(ctx); err != nil {
			return merr.WrapProjection(err, "index "+filepath)
		}
		return nil
	})
}

// Delete removes filepath's row from the index.
func (r *SearchRepo) Delete(ctx context.Context, filepath string) error {
	if _, err := r.db.NewDelete().Table("document_search").Where("filepath = ?", filepath).Exec(ctx); err != nil {
		return merr.WrapProjection(err, "unindex "+filepath)
	}
	return nil
}

// SearchResult is one ranked hit.
type SearchResult struct {
	FilePath     string
	Title        string
	DocumentType string
}

// Search runs a sanitized full-text query and returns matching filepaths
// ordered by FTS5's bm25 rank.
func (r *SearchRepo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	sanitized := SanitizeQuery(query)
	if sanitized == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []*searchRow
	err := r.db.NewSelect().
		Table("document_search").
		Column("filepath", "title", "document_type").
		Where("document_search MATCH ?", sanitized).
		OrderExpr("rank").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, merr.WrapProjection(err, "search")
	}

	out := make([]SearchResult, len(rows))
	for i, row := range rows {
		out[i] = SearchResult{FilePath: row.FilePath, Title: row.Title, DocumentType: row.DocumentType}
	}
	return out, nil
}

// ftsOperatorChars are characters FTS5 treats specially outside a quoted
// phrase; a term containing one is quoted so it is matched literally
// rather than parsed as query syntax (spec §4.4 "Sanitization" — hyphenated
// short codes like PROJ-T-0042 must match as literal terms).
const ftsOperatorChars = `-^*():`

// SanitizeQuery prepares free text for an FTS5 MATCH expression: it
// balances quotes (dropping them all if the count is odd), then quotes any
// token containing an FTS5 operator character so it is treated as a
// literal phrase instead of query syntax.
func SanitizeQuery(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if strings.Count(input, `"`)%2 != 0 {
		input = strings.ReplaceAll(input, `"`, "")
	}

	fields := strings.Fields(input)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		upper := strings.ToUpper(f)
		if upper == "AND" || upper == "OR" || upper == "NOT" || upper == "NEAR" {
			continue
		}
		if strings.ContainsAny(f, ftsOperatorChars) || strings.Contains(f, `"`) {
			escaped := strings.ReplaceAll(f, `"`, `""`)
			terms = append(terms, `"`+escaped+`"`)
			continue
		}
		terms = append(terms, f)
	}
	return strings.Join(terms, " ")
}
