package transport

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/projection"
)

// DehydrationPlan routes a workspace's locally modified documents onto
// their central-repository destinations (spec §4.7 "Dehydration plan").
// Central layout is flat by prefix (spec §4.7: "no nesting by flight
// level"), so StrategyDocs/InitiativeDocs are keyed by the document's own
// id rather than its nested local path; WorkspaceDocs, which the
// workspace owns outright, keeps its full local structure mirrored
// verbatim under the prefix folder.
type DehydrationPlan struct {
	// WorkspaceDocs maps a central-relative path under "{prefix}/…" to
	// content — every non-shared document the workspace owns outright
	// (vision, tasks, backlog, ADRs), nested exactly as it is locally.
	WorkspaceDocs map[string][]byte
	// StrategyDocs maps "<document id>.md" to content, destined for
	// "strategies/…"; populated only when the workspace holds the
	// strategy_group role.
	StrategyDocs map[string][]byte
	// InitiativeDocs is the same for "initiatives/…", gated on the
	// initiative_group role.
	InitiativeDocs map[string][]byte
}

func newDehydrationPlan() *DehydrationPlan {
	return &DehydrationPlan{
		WorkspaceDocs:  map[string][]byte{},
		StrategyDocs:   map[string][]byte{},
		InitiativeDocs: map[string][]byte{},
	}
}

// IsEmpty reports whether the plan stages nothing at all.
func (p *DehydrationPlan) IsEmpty() bool {
	return len(p.WorkspaceDocs) == 0 && len(p.StrategyDocs) == 0 && len(p.InitiativeDocs) == 0
}

// BuildDehydrationPlan classifies every non-archived row in rows by
// document type and the workspace's granted roles. A Strategy or
// Initiative document whose shared-folder role the workspace lacks is
// omitted entirely — it stays local, not an error (spec §4.7: "A document
// routed to a central shared folder that the workspace does not have the
// role for is omitted").
func BuildDehydrationPlan(cfg *config.Config, metisRoot string, rows []*projection.DocumentRow) (*DehydrationPlan, error) {
	plan := newDehydrationPlan()
	for _, row := range rows {
		if row.Archived {
			continue
		}
		raw, err := fsdal.Read(filepath.Join(metisRoot, filepath.FromSlash(row.FilePath)))
		if err != nil {
			continue // row outlived its file; the next directory sync reconciles it
		}

		switch document.Type(row.DocumentType) {
		case document.TypeStrategy:
			if cfg.HasRole(config.RoleStrategyGroup) {
				plan.StrategyDocs[row.ID+".md"] = raw
			}
		case document.TypeInitiative:
			if cfg.HasRole(config.RoleInitiativeGroup) {
				plan.InitiativeDocs[row.ID+".md"] = raw
			}
		default:
			if !isOwnDocumentPath(cfg, row.FilePath) {
				continue
			}
			plan.WorkspaceDocs[path.Join(cfg.Workspace.Prefix, row.FilePath)] = raw
		}
	}
	return plan, nil
}

// ownDocumentTopLevelNames are the fixed workspace-relative top-level
// names canonicalPath and archivedPath (workspace/paths.go) produce for a
// Vision, Task, or ADR this workspace created itself.
var ownDocumentTopLevelNames = map[string]bool{
	"vision.md": true,
	"tasks":     true,
	"backlog":   true,
	"adrs":      true,
	"archived":  true,
}

// isOwnDocumentPath reports whether rel belongs to this workspace's own
// document tree rather than to another workspace's folder that hydrate
// mirrored in read-only under metisRoot. Those mirrored folders are named
// after the owning workspace's prefix (e.g. "API/vision.md") and never
// match any of this workspace's canonical top-level names, so staging them
// here would re-push someone else's documents as a nested duplicate under
// this workspace's own central folder on every subsequent sync.
func isOwnDocumentPath(cfg *config.Config, rel string) bool {
	top := strings.SplitN(path.Clean(rel), "/", 2)[0]
	if ownDocumentTopLevelNames[top] {
		return true
	}
	switch top {
	case "strategies":
		return cfg.HasRole(config.RoleStrategyGroup)
	case "initiatives":
		return cfg.HasRole(config.RoleInitiativeGroup)
	}
	return false
}
