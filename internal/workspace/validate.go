package workspace

import (
	"context"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
)

// ValidationResult reports whether a document at a given path satisfies
// its own type/phase/field invariants (spec §4.5 "Validation"). It does
// not recheck cross-document parent legality — that is enforced when the
// document is created or reassigned, not on every validate call.
type ValidationResult struct {
	Type    document.Type
	IsValid bool
	Errors  []string
}

// Validate loads, parses, and checks the document at rel.
func (w *Workspace) Validate(ctx context.Context, rel document.FilePath) (*ValidationResult, error) {
	raw, err := fsdal.Read(abs(w.Root, rel))
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{}
	doc, err := document.Parse(rel, raw)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.Type = doc.DocumentType

	if err := document.Validate(doc); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}

	result.IsValid = true
	return result, nil
}
