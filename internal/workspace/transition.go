package workspace

import (
	"context"
	"time"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/logging"
	"github.com/colliery-io/metis/internal/merr"
)

// TransitionResult reports the phase change a Transition call made.
type TransitionResult struct {
	DocumentID document.DocumentId
	From       string
	To         string
}

// Transition moves the document identified by shortCode to targetPhase
// (or its canonical next phase, if targetPhase is empty), rewriting the
// phase tag in place and re-importing the file (spec §4.5
// "Phase transition").
func (w *Workspace) Transition(ctx context.Context, shortCode, targetPhase string) (*TransitionResult, error) {
	logger := logging.WithOperationContext(w.logger, "", shortCode, "transition")

	rel, err := w.Discover(ctx, shortCode)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "transition "+shortCode)
	}
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, merr.WrapWorkspace(err, "transition "+shortCode)
	}
	doc, err := document.Parse(rel, raw)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "transition "+shortCode)
	}

	from := doc.Phase()
	to, err := document.Transition(doc.DocumentType, from, targetPhase)
	if err != nil {
		if te, ok := err.(*merr.InvalidPhaseTransitionError); ok {
			te.ShortCode = shortCode
		}
		return nil, err
	}

	doc.SetPhase(to)
	doc.UpdatedAt = time.Now().UTC()

	out, err := document.Serialize(doc)
	if err != nil {
		return nil, merr.WrapWorkspace(err, "serialize "+shortCode)
	}
	if err := fsdal.Write(abs(w.Root, rel), out); err != nil {
		return nil, merr.WrapWorkspace(err, "write "+shortCode)
	}
	if _, err := w.importDocument(ctx, rel); err != nil {
		return nil, merr.WrapWorkspace(err, "re-import "+shortCode)
	}

	logger.Info("transitioned document", "from", from, "to", to)
	return &TransitionResult{DocumentID: doc.ID, From: from, To: to}, nil
}
