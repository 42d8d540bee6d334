package workspace

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
)

// ReassignRequest describes where a task should move (spec §4.5
// "Reassignment"). Exactly one of NewParentShortCode or Backlog should be
// set; Backlog moves the task to the backlog instead of an initiative.
type ReassignRequest struct {
	NewParentShortCode string
	Backlog            BacklogCategory
}

// ReassignResult reports the task's new location.
type ReassignResult struct {
	DocumentID  document.DocumentId
	OldFilePath document.FilePath
	NewFilePath document.FilePath
}

// Reassign moves the task identified by shortCode to a new initiative or
// to the backlog (spec §4.5 "Reassignment"). Only Task documents may be
// reassigned.
func (w *Workspace) Reassign(ctx context.Context, shortCode string, req ReassignRequest) (*ReassignResult, error) {
	logger := logging.WithOperationContext(w.logger, "", shortCode, "reassign")

	rel, err := w.Discover(ctx, shortCode)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "reassign "+shortCode)
	}
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, merr.WrapWorkspace(err, "reassign "+shortCode)
	}
	doc, err := document.Parse(rel, raw)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "reassign "+shortCode)
	}

	if doc.DocumentType != document.TypeTask {
		return nil, &merr.ValidationFailedError{Reason: fmt.Sprintf("%s is not a task and cannot be reassigned", shortCode)}
	}

	var parent *document.Document
	var backlog BacklogCategory
	if req.NewParentShortCode != "" {
		parent, err = w.LoadByShortCode(ctx, req.NewParentShortCode)
		if err != nil {
			return nil, merr.WrapWorkspace(err, "reassign "+shortCode)
		}
		if parent.DocumentType != document.TypeInitiative {
			return nil, &merr.ValidationFailedError{Reason: fmt.Sprintf("%s is not an initiative", req.NewParentShortCode)}
		}
		if parent.Phase() == document.Terminal(document.TypeInitiative) || parent.Archived {
			return nil, &merr.ValidationFailedError{Reason: fmt.Sprintf("%s is completed or archived", req.NewParentShortCode)}
		}
	} else {
		backlog = req.Backlog
		if backlog == "" {
			return nil, &merr.ValidationFailedError{Reason: "reassignment to the backlog requires a category"}
		}
		if !backlog.Valid() {
			return nil, &merr.ValidationFailedError{Reason: fmt.Sprintf("unknown backlog category %q", backlog)}
		}
	}

	dest, err := canonicalPath(document.TypeTask, parent, slugFromPath(rel), backlog)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "reassign "+shortCode)
	}
	if dest == rel {
		return &ReassignResult{DocumentID: doc.ID, OldFilePath: rel, NewFilePath: rel}, nil
	}
	if fsdal.Exists(abs(w.Root, dest)) {
		return nil, &merr.PathConflictError{Source: string(rel), Destination: string(dest)}
	}

	if parent != nil {
		doc.Parent = document.ParentReference{Kind: document.ParentSet, ID: parent.ID}
	} else {
		doc.Parent = document.ParentReference{Kind: document.ParentNone}
	}
	doc.UpdatedAt = time.Now().UTC()
	doc.FilePath = dest

	out, err := document.Serialize(doc)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "serialize "+shortCode)
	}
	if err := fsdal.Write(abs(w.Root, dest), out); err != nil {
		return nil, merr.WrapWorkspace(err, "write "+shortCode)
	}
	if err := fsdal.RemoveFile(abs(w.Root, rel)); err != nil {
		return nil, merr.WrapWorkspace(err, "remove old file "+string(rel))
	}
	// The old row may already be gone if a prior sync pruned it; the move
	// below is the authority, so a missing-row error here is not fatal.
	_ = w.Store.Documents.Delete(ctx, string(rel))
	if _, err := w.importDocument(ctx, dest); err != nil {
		return nil, merr.WrapWorkspace(err, "re-import "+string(dest))
	}

	logger.Info("reassigned task", "from", rel, "to", dest)
	return &ReassignResult{DocumentID: doc.ID, OldFilePath: rel, NewFilePath: dest}, nil
}

// slugFromPath extracts the filename stem (without extension) from a
// workspace-relative path, used to keep a task's slug stable across a
// reassignment move.
func slugFromPath(rel document.FilePath) string {
	base := path.Base(string(rel))
	return strings.TrimSuffix(base, path.Ext(base))
}
