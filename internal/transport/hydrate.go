package transport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colliery-io/metis/internal/fsdal"
)

// hydratedFileMode marks a mirrored remote file read-only: it's someone
// else's authoritative copy, not this workspace's to edit (spec §4.7
// "Hydrate remote folders: … write files into local .metis/{folder}/ as
// read-only").
const hydratedFileMode = 0o444

// hydrate mirrors every top-level central folder gc holds that this
// workspace doesn't own into metisRoot/{folder}/…, read-only. A folder
// this workspace owns (its own prefix, or a shared folder it holds the
// role for) is skipped — dehydrate is authoritative for those, and
// overwriting them here would clobber work not yet pushed. Per-file
// read/write failures are captured as warnings, not aborted (spec §7:
// "Transport errors that occur during hydration of a single remote file
// are captured as warnings").
func hydrate(gc *gitContext, metisRoot string, owned []string) (pulled int, warnings []string, err error) {
	entries, err := os.ReadDir(gc.dir)
	if err != nil {
		return 0, nil, fmt.Errorf("transport: list central folders: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == ".git" {
			continue
		}
		if ownsPrefix(owned, name) {
			continue
		}

		files, err := fsdal.Walk(filepath.Join(gc.dir, name))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("list %s: %v", name, err))
			continue
		}
		for _, rel := range files {
			src := filepath.Join(gc.dir, name, filepath.FromSlash(rel))
			raw, err := fsdal.Read(src)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("read %s/%s: %v", name, rel, err))
				continue
			}
			dest := filepath.Join(metisRoot, name, filepath.FromSlash(rel))
			if err := fsdal.Write(dest, raw); err != nil {
				warnings = append(warnings, fmt.Sprintf("write %s/%s: %v", name, rel, err))
				continue
			}
			if err := os.Chmod(dest, hydratedFileMode); err != nil {
				warnings = append(warnings, fmt.Sprintf("chmod %s/%s: %v", name, rel, err))
			}
			pulled++
		}
	}
	return pulled, warnings, nil
}
