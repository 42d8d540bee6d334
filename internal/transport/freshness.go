package transport

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// checkHostFreshness reports whether the repository enclosing root (the
// user's own project checkout, distinct from the ephemeral central clone)
// has uncommitted changes touching .metis/{prefix}/ (spec §4.7 step 2).
// Only the working tree and index are inspected; upstream commits that
// have not been pulled are not detected. If root isn't inside a Git
// repository at all, there's nothing to be stale against, so it reports
// clean.
func checkHostFreshness(ctx context.Context, root, prefix string) (stale bool, err error) {
	watched := filepath.Join(".metis", prefix)
	cmd := exec.CommandContext(ctx, "git", "-C", root, "status", "--porcelain", "--", watched)
	out, err := cmd.Output()
	if err != nil {
		// Not a Git repository (or git is unavailable): no host repo to be
		// stale against.
		return false, nil
	}
	return strings.TrimSpace(string(out)) != "", nil
}
