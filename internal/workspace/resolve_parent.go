package workspace

import (
	"context"
	"fmt"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/merr"
)

// resolveParent implements spec §4.5 "Creation"'s parent-resolution rule
// and §4.1's relationship matrix, given the active flight-level mode:
//
//	Vision:     never has a parent.
//	Strategy:   parent is always the workspace's single Vision document.
//	Initiative: Strategy (full mode), Vision (streamlined), or
//	            disallowed entirely (direct mode).
//	Task:       Initiative if parentShortCode names one; Strategy or
//	            Vision if the configuration has no Initiative level;
//	            otherwise none (the backlog).
//
// parentShortCode is the caller-supplied short code (may be empty); it
// returns the resolved parent document (nil for a backlog task or the
// root Vision) or an *merr.InvalidParentError describing why the request
// can't be satisfied.
func (w *Workspace) resolveParent(ctx context.Context, t document.Type, parentShortCode string) (*document.Document, error) {
	mode := w.Config.Mode()

	switch t {
	case document.TypeVision:
		if parentShortCode != "" {
			return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "vision is root and cannot have a parent"}
		}
		return nil, nil

	case document.TypeStrategy:
		if mode != config.ModeFull {
			return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "strategy level is disabled in this configuration"}
		}
		vision, err := w.loadVision()
		if err != nil {
			return nil, err
		}
		if parentShortCode != "" && parentShortCode != string(vision.ShortCode) {
			return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "strategy's parent must be the workspace vision"}
		}
		return vision, nil

	case document.TypeInitiative:
		if mode == config.ModeDirect {
			return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "initiative level is disabled in this configuration"}
		}
		if mode == config.ModeStreamlined {
			vision, err := w.loadVision()
			if err != nil {
				return nil, err
			}
			if parentShortCode != "" && parentShortCode != string(vision.ShortCode) {
				return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "initiative's parent must be the workspace vision in streamlined mode"}
			}
			return vision, nil
		}
		// Full mode: parent must be an explicitly named Strategy.
		if parentShortCode == "" {
			return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "initiative requires a parent strategy short code in full mode"}
		}
		parent, err := w.LoadByShortCode(ctx, parentShortCode)
		if err != nil {
			return nil, err
		}
		if parent.DocumentType != document.TypeStrategy {
			return nil, &merr.InvalidParentError{DocumentType: string(t), ParentType: string(parent.DocumentType)}
		}
		return parent, nil

	case document.TypeTask:
		if parentShortCode == "" {
			return nil, nil // backlog
		}
		parent, err := w.LoadByShortCode(ctx, parentShortCode)
		if err != nil {
			return nil, err
		}
		switch parent.DocumentType {
		case document.TypeInitiative:
			return parent, nil
		case document.TypeStrategy, document.TypeVision:
			if mode != config.ModeDirect {
				return nil, &merr.InvalidParentError{DocumentType: string(t), ParentType: string(parent.DocumentType), Reason: "task must parent under an initiative while the initiative level is enabled"}
			}
			return parent, nil
		default:
			return nil, &merr.InvalidParentError{DocumentType: string(t), ParentType: string(parent.DocumentType)}
		}

	case document.TypeADR:
		if parentShortCode != "" {
			return nil, &merr.InvalidParentError{DocumentType: string(t), Reason: "ADRs are freestanding and have no parent relationship"}
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("workspace: unknown document type %q", t)
	}
}

// loadVision reads and parses the workspace's root vision.md.
func (w *Workspace) loadVision() (*document.Document, error) {
	raw, err := fsdal.Read(abs(w.Root, document.FilePath(visionFileName)))
	if err != nil {
		return nil, fmt.Errorf("workspace: load vision: %w", err)
	}
	return document.Parse(document.FilePath(visionFileName), raw)
}
