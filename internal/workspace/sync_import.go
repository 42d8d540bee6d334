package workspace

import (
	"context"
	"fmt"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/projection"
)

// importDocument reads, parses, and projects the file at rel, refreshing
// its documents/tags/relationships/search rows in one pass. Every workspace
// operation that writes a file calls this immediately after, so the
// projection never lags the filesystem across an operation boundary (spec
// §5 "Ordering guarantees").
func (w *Workspace) importDocument(ctx context.Context, rel document.FilePath) (*document.Document, error) {
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, fmt.Errorf("workspace: import %s: %w", rel, err)
	}
	doc, err := document.Parse(rel, raw)
	if err != nil {
		return nil, fmt.Errorf("workspace: parse %s: %w", rel, err)
	}
	if err := document.Validate(doc); err != nil {
		return nil, err
	}
	if err := w.projectDocument(ctx, doc, raw); err != nil {
		return nil, err
	}
	return doc, nil
}

// projectDocument upserts doc's row, tags, relationship edge, and search
// index from an already-parsed document and its raw bytes.
func (w *Workspace) projectDocument(ctx context.Context, doc *document.Document, raw []byte) error {
	row := &projection.DocumentRow{
		FilePath:        string(doc.FilePath),
		ID:              string(doc.ID),
		ShortCode:       string(doc.ShortCode),
		Title:           doc.Title,
		DocumentType:    string(doc.DocumentType),
		Phase:           doc.Phase(),
		Archived:        doc.Archived,
		CreatedAt:       doc.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
		UpdatedAt:       doc.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
		ExitCriteriaMet: doc.ExitCriteriaMet,
		FileHash:        fsdal.HashHex(raw),
	}

	var parentRow *projection.DocumentRow
	if doc.Parent.Kind == document.ParentSet {
		row.ParentID = string(doc.Parent.ID)
		if found, err := w.Store.Documents.FindByID(ctx, string(doc.Parent.ID)); err == nil {
			parentRow = found
		}
	}
	row.StrategyID, row.InitiativeID = lineageIDs(doc, parentRow)

	if err := w.Store.Documents.Upsert(ctx, row); err != nil {
		return err
	}

	tags := make([]string, len(doc.Tags))
	for i, t := range doc.Tags {
		tags[i] = "#" + string(t)
	}
	if err := w.Store.Tags.Replace(ctx, string(doc.FilePath), tags); err != nil {
		return err
	}

	if parentRow != nil {
		if err := w.Store.Relationships.Set(ctx, &projection.RelationshipRow{
			ParentID:       string(doc.Parent.ID),
			ChildID:        string(doc.ID),
			ParentFilePath: parentRow.FilePath,
			ChildFilePath:  string(doc.FilePath),
		}); err != nil {
			return err
		}
	} else if err := w.Store.Relationships.Clear(ctx, string(doc.FilePath)); err != nil {
		return err
	}

	return w.Store.Search.Index(ctx, string(doc.FilePath), doc.Title, doc.ContentBody, string(doc.DocumentType))
}

// lineageIDs derives the strategy_id/initiative_id columns used by
// FindStrategyHierarchy, from doc's own type and its already-projected
// parent row (nil if the parent isn't projected yet or doc is root).
func lineageIDs(doc *document.Document, parent *projection.DocumentRow) (strategyID, initiativeID string) {
	switch doc.DocumentType {
	case document.TypeStrategy:
		return string(doc.ID), ""
	case document.TypeInitiative:
		if parent != nil && parent.DocumentType == string(document.TypeStrategy) {
			return parent.ID, string(doc.ID)
		}
		return "", string(doc.ID)
	case document.TypeTask:
		if parent != nil && parent.DocumentType == string(document.TypeInitiative) {
			return parent.StrategyID, parent.ID
		}
		return "", ""
	default:
		return "", ""
	}
}
