package workspace

import (
	"context"
	"fmt"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/merr"
)

// Discover locates the file for a short code: a fast path through the
// projection, falling back to a full workspace walk when the cache is
// stale or absent (spec §4.5 "Discovery").
func (w *Workspace) Discover(ctx context.Context, shortCode string) (document.FilePath, error) {
	if row, err := w.Store.Documents.FindByShortCode(ctx, shortCode); err == nil {
		return document.FilePath(row.FilePath), nil
	}

	files, err := fsdal.Walk(metisRoot(w.Root))
	if err != nil {
		return "", fmt.Errorf("workspace: discover %s: %w", shortCode, err)
	}
	for _, rel := range files {
		raw, err := fsdal.Read(abs(w.Root, document.FilePath(rel)))
		if err != nil {
			continue
		}
		doc, err := document.Parse(document.FilePath(rel), raw)
		if err != nil {
			continue
		}
		if string(doc.ShortCode) == shortCode {
			return doc.FilePath, nil
		}
	}
	return "", &merr.DocumentNotFoundError{ShortCode: shortCode}
}

// LoadByShortCode discovers and parses the document identified by shortCode.
func (w *Workspace) LoadByShortCode(ctx context.Context, shortCode string) (*document.Document, error) {
	rel, err := w.Discover(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, fmt.Errorf("workspace: load %s: %w", shortCode, err)
	}
	return document.Parse(rel, raw)
}
