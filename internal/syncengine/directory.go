package syncengine

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
)

// DirectorySync walks every Markdown file under the engine's root, raising
// each (prefix, type) short-code counter to the highest suffix found on
// disk, importing what the projection hasn't seen, updating what changed,
// deleting rows for files that vanished (or marking them Moved when the
// same short code resurfaces elsewhere), and renumbering any short-code
// collision it finds along the way (spec §4.6 "Directory sync").
func (e *Engine) DirectorySync(ctx context.Context) (*DirectoryReport, error) {
	files, err := fsdal.Walk(e.root)
	if err != nil {
		return nil, fmt.Errorf("syncengine: walk %s: %w", e.root, err)
	}

	report := &DirectoryReport{}
	shortCodes := map[string][]string{} // short code -> filepaths claiming it, this pass
	onDisk := map[string]bool{}
	maxSuffix := map[[2]string]uint32{} // (prefix, type letter) -> highest suffix on disk

	for _, rel := range files {
		onDisk[rel] = true
		raw, err := fsdal.Read(e.abs(rel))
		if err != nil {
			report.record(Entry{FilePath: rel, Result: ErrorState, Err: err})
			continue
		}
		doc, err := document.Parse(document.FilePath(rel), raw)
		if err != nil {
			report.record(Entry{FilePath: rel, Result: ErrorState, Err: err})
			continue
		}
		shortCodes[string(doc.ShortCode)] = append(shortCodes[string(doc.ShortCode)], rel)
		if prefix, letter, err := splitShortCode(string(doc.ShortCode)); err == nil {
			n, _ := strconv.Atoi(strings.Split(string(doc.ShortCode), "-")[2])
			if key := [2]string{prefix, letter}; uint32(n) > maxSuffix[key] {
				maxSuffix[key] = uint32(n)
			}
		}
	}

	for key, n := range maxSuffix {
		if err := e.store.Config.SetCounterIfLower(ctx, key[0], key[1], n); err != nil {
			return nil, fmt.Errorf("syncengine: recover counter %s-%s: %w", key[0], key[1], err)
		}
	}

	collisions := map[string]bool{}
	for code, paths := range shortCodes {
		if len(paths) > 1 {
			collisions[code] = true
			if err := e.resolveCollision(ctx, code, paths, report); err != nil {
				return nil, fmt.Errorf("syncengine: resolve collision %s: %w", code, err)
			}
		}
	}

	for _, rel := range files {
		if collisionTouched(rel, collisions, shortCodes) {
			continue // already recorded by resolveCollision
		}
		result, err := e.Import(ctx, rel)
		if err != nil {
			report.record(Entry{FilePath: rel, Result: ErrorState, Err: err})
			continue
		}
		report.record(Entry{FilePath: rel, Result: result})
	}

	if err := e.reconcileDeletions(ctx, onDisk, shortCodes, report); err != nil {
		return nil, err
	}

	return report, nil
}

// collisionTouched reports whether rel belonged to a short code that
// resolveCollision already handled (and therefore already recorded).
func collisionTouched(rel string, collisions map[string]bool, shortCodes map[string][]string) bool {
	for code, paths := range shortCodes {
		if !collisions[code] {
			continue
		}
		for _, p := range paths {
			if p == rel {
				return true
			}
		}
	}
	return false
}

// reconcileDeletions finds projection rows whose file is no longer on
// disk: if the row's short code now belongs to a different path, that's a
// Moved file (the new path was already imported above, so only the stale
// documents row at the old path is deleted; its tag, relationship and
// search rows are left in place); otherwise the row and its tag,
// relationship and search rows are pruned as Deleted.
func (e *Engine) reconcileDeletions(ctx context.Context, onDisk map[string]bool, shortCodes map[string][]string, report *DirectoryReport) error {
	rows, err := e.store.Documents.ListAll(ctx, true)
	if err != nil {
		return fmt.Errorf("syncengine: list projected documents: %w", err)
	}
	for _, row := range rows {
		if onDisk[row.FilePath] {
			continue
		}
		if paths, ok := shortCodes[row.ShortCode]; ok && len(paths) > 0 {
			report.record(Entry{FilePath: row.FilePath, ShortCode: row.ShortCode, Result: Moved, MovedFrom: row.FilePath, MovedTo: paths[0]})
			if err := e.store.Documents.Delete(ctx, row.FilePath); err != nil {
				return fmt.Errorf("syncengine: prune moved row %s: %w", row.FilePath, err)
			}
			continue
		}
		if err := e.store.Documents.Delete(ctx, row.FilePath); err != nil {
			return fmt.Errorf("syncengine: delete row %s: %w", row.FilePath, err)
		}
		_ = e.store.Relationships.Clear(ctx, row.FilePath)
		_ = e.store.Tags.Delete(ctx, row.FilePath)
		_ = e.store.Search.Delete(ctx, row.FilePath)
		report.record(Entry{FilePath: row.FilePath, ShortCode: row.ShortCode, Result: Deleted})
	}
	return nil
}

// resolveCollision picks the shallowest (then lexicographically first)
// path among paths as the survivor of shortCode, renumbers every other
// claimant to a freshly allocated short code, and rewrites any sibling
// document in the same directory that mentions the old code in free text
// (spec §4.6 "Collision resolution"). Document identity is carried by
// DocumentId, not short code, so parent/blocked_by references (which are
// id-keyed — spec §9 "Identity vs storage location") need no rewriting;
// this only has bite for a short code mentioned in prose.
func (e *Engine) resolveCollision(ctx context.Context, shortCode string, paths []string, report *DirectoryReport) error {
	ranked := append([]string(nil), paths...)
	sort.Slice(ranked, func(i, j int) bool {
		di, dj := depth(ranked[i]), depth(ranked[j])
		if di != dj {
			return di < dj
		}
		return ranked[i] < ranked[j]
	})
	survivor := ranked[0]

	prefix, letter, err := splitShortCode(shortCode)
	if err != nil {
		return err
	}

	for _, rel := range ranked[1:] {
		newCode, err := e.store.Config.GenerateShortCode(ctx, prefix, letter)
		if err != nil {
			return fmt.Errorf("syncengine: allocate replacement short code: %w", err)
		}

		raw, err := fsdal.Read(e.abs(rel))
		if err != nil {
			return err
		}
		doc, err := document.Parse(document.FilePath(rel), raw)
		if err != nil {
			return err
		}
		doc.ShortCode = document.ShortCode(newCode)
		out, err := document.Serialize(doc)
		if err != nil {
			return err
		}
		if err := fsdal.Write(e.abs(rel), out); err != nil {
			return err
		}

		if err := e.rewriteSiblingMentions(rel, shortCode, newCode); err != nil {
			return err
		}

		if _, err := e.Import(ctx, rel); err != nil {
			return err
		}

		report.record(Entry{FilePath: rel, ShortCode: newCode, Result: Renumbered, RenumberedFrom: shortCode, RenumberedTo: newCode})
		e.log("renumbered short code collision", "filepath", rel, "from", shortCode, "to", newCode)
	}

	survivorResult, err := e.Import(ctx, survivor)
	if err != nil {
		return err
	}
	report.record(Entry{FilePath: survivor, ShortCode: shortCode, Result: survivorResult})
	return nil
}

// rewriteSiblingMentions scans every other Markdown file directly in rel's
// directory for a literal mention of oldCode and replaces it with
// newCode. A file that still claims oldCode as its own short code (the
// survivor, or a claimant not yet renumbered) is left unchanged.
func (e *Engine) rewriteSiblingMentions(rel, oldCode, newCode string) error {
	dir := path.Dir(rel)
	siblings, err := fsdal.Walk(e.abs(dir))
	if err != nil {
		return nil // best-effort; a missing/unreadable directory isn't fatal here
	}
	for _, s := range siblings {
		if strings.Contains(s, "/") {
			continue // nested below rel's directory, not a sibling
		}
		siblingRel := path.Join(dir, s)
		if siblingRel == rel {
			continue
		}
		raw, err := fsdal.Read(e.abs(siblingRel))
		if err != nil || !strings.Contains(string(raw), oldCode) {
			continue
		}
		if doc, err := document.Parse(document.FilePath(siblingRel), raw); err == nil && string(doc.ShortCode) == oldCode {
			continue
		}
		if err := fsdal.Write(e.abs(siblingRel), []byte(strings.ReplaceAll(string(raw), oldCode, newCode))); err != nil {
			return err
		}
	}
	return nil
}

func depth(rel string) int {
	return strings.Count(rel, "/")
}

func splitShortCode(code string) (prefix, letter string, err error) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("syncengine: malformed short code %q", code)
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return "", "", fmt.Errorf("syncengine: malformed short code suffix %q", code)
	}
	return parts[0], parts[1], nil
}
