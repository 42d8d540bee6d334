package workspace

import (
	"context"
	"time"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
)

// ArchivedEntry is one document moved by an Archive call.
type ArchivedEntry struct {
	DocumentID   document.DocumentId
	OriginalPath document.FilePath
	ArchivedPath document.FilePath
}

// ArchiveResult reports the outcome of an Archive call.
type ArchiveResult struct {
	TotalArchived int
	Entries       []ArchivedEntry
}

// Archive relocates the document identified by shortCode, and every
// descendant in its subtree, under archived/, preserving relative
// structure, and flips their archived flag (spec §4.5 "Archive",
// invariant I5). Idempotent: already-archived documents are left in place
// and still counted in the result.
func (w *Workspace) Archive(ctx context.Context, shortCode string) (*ArchiveResult, error) {
	logger := logging.WithOperationContext(w.logger, "", shortCode, "archive")

	root, err := w.LoadByShortCode(ctx, shortCode)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "archive "+shortCode)
	}

	subtree, err := w.subtreeFilePaths(ctx, root)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "archive "+shortCode)
	}

	result := &ArchiveResult{}
	for _, rel := range subtree {
		entry, err := w.archiveOne(ctx, rel)
		if err != nil {
			return nil, merr.WrapWorkspace(err, "archive "+rel)
		}
		result.Entries = append(result.Entries, *entry)
		result.TotalArchived++
	}

	logger.Info("archived subtree", "root", shortCode, "count", result.TotalArchived)
	return result, nil
}

// subtreeFilePaths returns root's own filepath plus every descendant's,
// via the projection's lineage queries (spec §4.5 "Archive": "computed via
// projection lineage queries").
func (w *Workspace) subtreeFilePaths(ctx context.Context, root *document.Document) ([]document.FilePath, error) {
	paths := []document.FilePath{root.FilePath}

	switch root.DocumentType {
	case document.TypeStrategy:
		rows, err := w.Store.Documents.FindStrategyHierarchy(ctx, string(root.ID))
		if err != nil {
			return nil, err
		}
		paths = paths[:0]
		for _, row := range rows {
			paths = append(paths, document.FilePath(row.FilePath))
		}
	case document.TypeInitiative:
		children, err := w.Store.Documents.FindChildren(ctx, string(root.ID), true)
		if err != nil {
			return nil, err
		}
		for _, row := range children {
			paths = append(paths, document.FilePath(row.FilePath))
		}
	}
	return paths, nil
}

func (w *Workspace) archiveOne(ctx context.Context, rel document.FilePath) (*ArchivedEntry, error) {
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(rel, raw)
	if err != nil {
		return nil, err
	}

	if doc.Archived {
		return &ArchivedEntry{DocumentID: doc.ID, OriginalPath: rel, ArchivedPath: rel}, nil
	}

	dest := archivedPath(rel)
	doc.Archived = true
	doc.UpdatedAt = time.Now().UTC()

	out, err := document.Serialize(doc)
	if err != nil {
		return nil, err
	}
	if err := fsdal.Write(abs(w.Root, dest), out); err != nil {
		return nil, err
	}
	if err := fsdal.RemoveFile(abs(w.Root, rel)); err != nil {
		return nil, err
	}
	if err := w.Store.Documents.Delete(ctx, string(rel)); err != nil {
		return nil, err
	}
	if _, err := w.importDocument(ctx, dest); err != nil {
		return nil, err
	}

	return &ArchivedEntry{DocumentID: doc.ID, OriginalPath: rel, ArchivedPath: dest}, nil
}
