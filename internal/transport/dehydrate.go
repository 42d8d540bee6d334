package transport

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/fsdal"
)

// ownedCentralPrefixes lists the top-level central folders this workspace
// is allowed to write to: its own prefix always, plus "strategies" and
// "initiatives" when the matching role is granted (spec §4.7
// "Single-writer discipline": "refuses to stage paths outside the
// workspace's own prefix and its role-permitted central folders").
func ownedCentralPrefixes(cfg *config.Config) []string {
	owned := []string{cfg.Workspace.Prefix}
	if cfg.HasRole(config.RoleStrategyGroup) {
		owned = append(owned, "strategies")
	}
	if cfg.HasRole(config.RoleInitiativeGroup) {
		owned = append(owned, "initiatives")
	}
	return owned
}

func ownsPrefix(owned []string, centralPath string) bool {
	top := strings.SplitN(path.Clean(centralPath), "/", 2)[0]
	for _, p := range owned {
		if p == top {
			return true
		}
	}
	return false
}

// dehydrate writes plan's files into gc's worktree under their central
// destinations, refusing (defensively, on top of BuildDehydrationPlan's
// own role gating) to stage anything outside cfg's owned prefixes.
func dehydrate(gc *gitContext, cfg *config.Config, plan *DehydrationPlan) (written int, err error) {
	owned := ownedCentralPrefixes(cfg)

	stage := func(centralPath string, content []byte) error {
		if !ownsPrefix(owned, centralPath) {
			return fmt.Errorf("transport: refusing to stage %s: outside owned central prefixes %v", centralPath, owned)
		}
		dest := filepath.Join(gc.dir, filepath.FromSlash(centralPath))
		if err := fsdal.Write(dest, content); err != nil {
			return fmt.Errorf("transport: stage %s: %w", centralPath, err)
		}
		written++
		return nil
	}

	for central, content := range plan.WorkspaceDocs {
		if err := stage(central, content); err != nil {
			return written, err
		}
	}
	for central, content := range plan.StrategyDocs {
		if err := stage(path.Join("strategies", central), content); err != nil {
			return written, err
		}
	}
	for central, content := range plan.InitiativeDocs {
		if err := stage(path.Join("initiatives", central), content); err != nil {
			return written, err
		}
	}
	return written, nil
}
