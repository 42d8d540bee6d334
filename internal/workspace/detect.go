package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/colliery-io/metis/internal/merr"
)

// Detect walks up from startDir looking for a .metis control directory,
// the way git locates a repository root. Returns the workspace root (the
// directory containing .metis), or ErrWorkspaceNotInitialized if none is
// found before reaching the filesystem root.
func Detect(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("workspace: detect: %w", err)
	}

	for {
		if metisDirExists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("workspace: detect from %s: %w", startDir, merr.ErrWorkspaceNotInitialized)
		}
		dir = parent
	}
}
