package syncengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
)

const exportTimestampLayout = "2006-01-02T15:04:05.000000Z"

// Export rehydrates the file at filepath from the projection's own record
// of it, for disaster recovery when only the database is trusted (spec
// §4.6 "Export (projection → file)"). It reconstructs frontmatter from the
// row and its tags; the content body is not stored in the projection, so a
// placeholder section marks what was lost. Rarely used directly — the
// ordinary direction is Import.
func (e *Engine) Export(ctx context.Context, filepath string) error {
	row, err := e.store.Documents.Get(ctx, filepath)
	if err != nil {
		return fmt.Errorf("syncengine: export %s: %w", filepath, err)
	}
	tags, err := e.store.Tags.ForDocument(ctx, filepath)
	if err != nil {
		return fmt.Errorf("syncengine: export %s: %w", filepath, err)
	}

	doc := &document.Document{
		Common: document.Common{
			ShortCode:       document.ShortCode(row.ShortCode),
			ID:              document.DocumentId(row.ID),
			Title:           row.Title,
			DocumentType:    document.Type(row.DocumentType),
			FilePath:        document.FilePath(row.FilePath),
			Tags:            stripTagPrefixes(tags),
			Archived:        row.Archived,
			ExitCriteriaMet: row.ExitCriteriaMet,
			ContentBody:     "_Recovered from the projection cache; original body content was not retained._\n",
		},
	}
	if row.ParentID != "" {
		doc.Parent = document.ParentReference{Kind: document.ParentSet, ID: document.DocumentId(row.ParentID)}
	} else {
		doc.Parent = document.ParentReference{Kind: document.ParentNone}
	}
	if t, err := time.Parse(exportTimestampLayout, row.CreatedAt); err == nil {
		doc.CreatedAt = t
	}
	if t, err := time.Parse(exportTimestampLayout, row.UpdatedAt); err == nil {
		doc.UpdatedAt = t
	}

	out, err := document.Serialize(doc)
	if err != nil {
		return fmt.Errorf("syncengine: export %s: serialize: %w", filepath, err)
	}
	return fsdal.Write(e.abs(filepath), out)
}

func stripTagPrefixes(tags []string) []document.Tag {
	out := make([]document.Tag, len(tags))
	for i, t := range tags {
		out[i] = document.Tag(strings.TrimPrefix(t, "#"))
	}
	return out
}
