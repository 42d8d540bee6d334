package syncengine

import (
	"context"
	"fmt"

	"github.com/colliery-io/metis/internal/fsdal"
)

// DiscrepancyKind classifies a verify_sync finding.
type DiscrepancyKind string

const (
	MissingFromDatabase   DiscrepancyKind = "missing_from_database"
	MissingFromFilesystem DiscrepancyKind = "missing_from_filesystem"
	OutOfSync             DiscrepancyKind = "out_of_sync"
)

// Discrepancy is one mismatch between the filesystem and the projection.
type Discrepancy struct {
	Kind DiscrepancyKind
	Path string
}

// Verify compares every on-disk file and every projected row without
// changing either side, reporting what a directory sync would fix (spec
// §4.6 "Verification"). Read-only: callers decide whether to follow up
// with DirectorySync or a targeted repair.
func (e *Engine) Verify(ctx context.Context) ([]Discrepancy, error) {
	files, err := fsdal.Walk(e.root)
	if err != nil {
		return nil, fmt.Errorf("syncengine: verify: walk %s: %w", e.root, err)
	}
	onDisk := make(map[string]string, len(files)) // filepath -> content hash

	var discrepancies []Discrepancy
	for _, rel := range files {
		raw, err := fsdal.Read(e.abs(rel))
		if err != nil {
			continue
		}
		onDisk[rel] = fsdal.HashHex(raw)

		row, err := e.store.Documents.Get(ctx, rel)
		switch {
		case err != nil:
			discrepancies = append(discrepancies, Discrepancy{Kind: MissingFromDatabase, Path: rel})
		case row.FileHash != onDisk[rel]:
			discrepancies = append(discrepancies, Discrepancy{Kind: OutOfSync, Path: rel})
		}
	}

	rows, err := e.store.Documents.ListAll(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("syncengine: verify: list projected documents: %w", err)
	}
	for _, row := range rows {
		if _, ok := onDisk[row.FilePath]; !ok {
			discrepancies = append(discrepancies, Discrepancy{Kind: MissingFromFilesystem, Path: row.FilePath})
		}
	}

	return discrepancies, nil
}
