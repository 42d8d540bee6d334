package workspace

import (
	"context"
	"path"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
)

// DeleteResult reports what a Delete call removed.
type DeleteResult struct {
	RemovedFiles []document.FilePath
	CleanedDirs  []string
}

// Delete removes the document identified by shortCode: its file, then
// best-effort removal of any now-empty subfolder it owned (a strategy's
// or initiative's directory). Rare; best-effort (spec §4.5 "Deletion").
func (w *Workspace) Delete(ctx context.Context, shortCode string) (*DeleteResult, error) {
	logger := logging.WithOperationContext(w.logger, "", shortCode, "delete")

	rel, err := w.Discover(ctx, shortCode)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "delete "+shortCode)
	}
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, merr.WrapWorkspace(err, "delete "+shortCode)
	}
	doc, err := document.Parse(rel, raw)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "delete "+shortCode)
	}

	result := &DeleteResult{}

	if err := fsdal.RemoveFile(abs(w.Root, rel)); err != nil {
		return nil, merr.WrapWorkspace(err, "delete "+shortCode)
	}
	result.RemovedFiles = append(result.RemovedFiles, rel)
	_ = w.Store.Documents.Delete(ctx, string(rel))
	_ = w.Store.Relationships.Clear(ctx, string(rel))
	_ = w.Store.Tags.Delete(ctx, string(rel))
	_ = w.Store.Search.Delete(ctx, string(rel))

	// An owning folder exists for Strategy (".../strategies/{slug}/") and
	// Initiative (".../initiatives/{slug}/"); for other types the file's
	// own directory is not exclusively owned and is left alone.
	if doc.DocumentType == document.TypeStrategy || doc.DocumentType == document.TypeInitiative {
		ownedDir := path.Dir(string(rel))
		dir := ownedDir
		for dir != "." && dir != "/" {
			fsdal.RemoveEmptyDir(abs(w.Root, document.FilePath(dir)))
			result.CleanedDirs = append(result.CleanedDirs, dir)
			dir = path.Dir(dir)
		}
	}

	logger.Info("deleted document", "filepath", rel)
	return result, nil
}
