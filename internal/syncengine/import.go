package syncengine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/projection"
)

func (e *Engine) abs(rel string) string {
	return filepath.Join(e.root, filepath.FromSlash(rel))
}

// Import reads, parses, and projects the file at rel, regardless of
// whether the projection already has a row for it (spec §4.6 "Import
// (file → projection)"). Returns the classification that DirectorySync
// records for this file.
func (e *Engine) Import(ctx context.Context, rel string) (Result, error) {
	raw, err := fsdal.Read(e.abs(rel))
	if err != nil {
		return ErrorState, fmt.Errorf("syncengine: read %s: %w", rel, err)
	}
	doc, err := document.Parse(document.FilePath(rel), raw)
	if err != nil {
		return ErrorState, fmt.Errorf("syncengine: parse %s: %w", rel, err)
	}
	if err := document.Validate(doc); err != nil {
		return ErrorState, err
	}

	hash := fsdal.HashHex(raw)
	existing, err := e.store.Documents.Get(ctx, rel)
	result := Imported
	if err == nil {
		result = Updated
		if existing.FileHash == hash {
			result = UpToDate
		}
		// A row already at this filepath under a different id means the
		// title changed since the last sync; the row is overwritten in
		// place rather than treated as a separate document (spec §4.6:
		// "detect as a rename and update in place").
	}
	if result == UpToDate {
		return UpToDate, nil
	}

	if err := e.project(ctx, doc, raw, hash); err != nil {
		return ErrorState, err
	}
	return result, nil
}

// project upserts doc's row, tags, relationship edge, and search index.
func (e *Engine) project(ctx context.Context, doc *document.Document, raw []byte, hash string) error {
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
		FileHash:        hash,
	}

	var parentRow *projection.DocumentRow
	if doc.Parent.Kind == document.ParentSet {
		row.ParentID = string(doc.Parent.ID)
		if found, err := e.store.Documents.FindByID(ctx, string(doc.Parent.ID)); err == nil {
			parentRow = found
		}
	}
	row.StrategyID, row.InitiativeID = lineage(doc, parentRow)

	if err := e.store.Documents.Upsert(ctx, row); err != nil {
		return err
	}

	tags := make([]string, len(doc.Tags))
	for i, t := range doc.Tags {
		tags[i] = "#" + string(t)
	}
	if err := e.store.Tags.Replace(ctx, string(doc.FilePath), tags); err != nil {
		return err
	}

	if parentRow != nil {
		if err := e.store.Relationships.Set(ctx, &projection.RelationshipRow{
			ParentID:       string(doc.Parent.ID),
			ChildID:        string(doc.ID),
			ParentFilePath: parentRow.FilePath,
			ChildFilePath:  string(doc.FilePath),
		}); err != nil {
			return err
		}
	} else if err := e.store.Relationships.Clear(ctx, string(doc.FilePath)); err != nil {
		return err
	}

	return e.store.Search.Index(ctx, string(doc.FilePath), doc.Title, doc.ContentBody, string(doc.DocumentType))
}

// lineage mirrors workspace.lineageIDs: it derives the strategy_id/
// initiative_id columns FindStrategyHierarchy relies on, from doc's type
// and its already-projected parent row.
func lineage(doc *document.Document, parent *projection.DocumentRow) (strategyID, initiativeID string) {
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
