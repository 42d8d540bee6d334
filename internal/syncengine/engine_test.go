package syncengine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/fsdal"
	"github.com/colliery-io/metis/internal/projection"
	"github.com/colliery-io/metis/pkg/testsupport"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	sqldb, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := projection.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := projection.NewStore(db)

	root := t.TempDir()
	return NewEngine(root, store), root
}

func taskFixture(shortCode, title string) string {
	slug, err := document.SlugifyTitle(title)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf(`---
level: task
id: %s
title: %s
short_code: %s
created_at: "2026-01-01T00:00:00.000000Z"
updated_at: "2026-01-01T00:00:00.000000Z"
parent: null
tags:
  - phase/todo
archived: false
exit_criteria_met: false
---

Do the thing.
`, slug, title, shortCode)
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	if err := fsdal.Write(filepath.Join(root, filepath.FromSlash(rel)), []byte(content)); err != nil {
		t.Fatalf("write fixture %s: %v", rel, err)
	}
}

func TestImportNewFileIsImported(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()
	writeFixture(t, root, "backlog/general/do-the-thing.md", taskFixture("METIS-T-0001", "Do the thing"))

	result, err := e.Import(ctx, "backlog/general/do-the-thing.md")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result != Imported {
		t.Fatalf("expected Imported, got %s", result)
	}

	row, err := e.store.Documents.Get(ctx, "backlog/general/do-the-thing.md")
	if err != nil {
		t.Fatalf("get row: %v", err)
	}
	if row.ShortCode != "METIS-T-0001" {
		t.Fatalf("unexpected short code %s", row.ShortCode)
	}
}

func TestImportUnchangedFileIsUpToDate(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()
	rel := "backlog/general/do-the-thing.md"
	writeFixture(t, root, rel, taskFixture("METIS-T-0001", "Do the thing"))

	if _, err := e.Import(ctx, rel); err != nil {
		t.Fatalf("first import: %v", err)
	}
	result, err := e.Import(ctx, rel)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result != UpToDate {
		t.Fatalf("expected UpToDate, got %s", result)
	}
}

func TestImportChangedFileIsUpdated(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()
	rel := "backlog/general/do-the-thing.md"
	writeFixture(t, root, rel, taskFixture("METIS-T-0001", "Do the thing"))

	if _, err := e.Import(ctx, rel); err != nil {
		t.Fatalf("first import: %v", err)
	}

	edited := strings.Replace(taskFixture("METIS-T-0001", "Do the thing"), "Do the thing.\n", "Do the other thing.\n", 1)
	writeFixture(t, root, rel, edited)

	result, err := e.Import(ctx, rel)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result != Updated {
		t.Fatalf("expected Updated, got %s", result)
	}
}

func TestDirectorySyncImportsUpdatesAndDeletes(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()

	writeFixture(t, root, "backlog/general/first.md", taskFixture("METIS-T-0001", "First"))
	writeFixture(t, root, "backlog/general/second.md", taskFixture("METIS-T-0002", "Second"))

	report, err := e.DirectorySync(ctx)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if report.Counts[Imported] != 2 {
		t.Fatalf("expected 2 imports, got %d (%+v)", report.Counts[Imported], report.Counts)
	}

	edited := strings.Replace(taskFixture("METIS-T-0001", "First"), "Do the thing.\n", "Changed.\n", 1)
	writeFixture(t, root, "backlog/general/first.md", edited)
	if err := fsdal.RemoveFile(filepath.Join(root, "backlog/general/second.md")); err != nil {
		t.Fatalf("remove second: %v", err)
	}

	report, err = e.DirectorySync(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.Counts[Updated] != 1 {
		t.Fatalf("expected 1 update, got %d (%+v)", report.Counts[Updated], report.Counts)
	}
	if report.Counts[Deleted] != 1 {
		t.Fatalf("expected 1 delete, got %d (%+v)", report.Counts[Deleted], report.Counts)
	}

	if _, err := e.store.Documents.Get(ctx, "backlog/general/second.md"); err == nil {
		t.Fatal("expected deleted row to be gone")
	}
}

func TestDirectorySyncResolvesShortCodeCollision(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()

	// Consume METIS-T-0001 through the counter first, as workspace.Create
	// would have when either file was legitimately authored; the other is
	// a duplicate (a copy of the same file) still claiming that code.
	if _, err := e.store.Config.GenerateShortCode(ctx, "METIS", "T"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	writeFixture(t, root, "backlog/general/alpha.md", taskFixture("METIS-T-0001", "Alpha"))
	writeFixture(t, root, "backlog/bug/beta.md", taskFixture("METIS-T-0001", "Beta"))

	report, err := e.DirectorySync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Counts[Renumbered] != 1 {
		t.Fatalf("expected 1 renumbered entry, got %d (%+v)", report.Counts[Renumbered], report.Counts)
	}

	// backlog/bug/beta.md and backlog/general/alpha.md are at equal depth,
	// so the lexicographically first — backlog/bug/beta.md — survives and
	// keeps METIS-T-0001; the other is renumbered.
	survivorRow, err := e.store.Documents.Get(ctx, "backlog/bug/beta.md")
	if err != nil {
		t.Fatalf("get survivor row: %v", err)
	}
	if survivorRow.ShortCode != "METIS-T-0001" {
		t.Fatalf("expected survivor to keep METIS-T-0001, got %s", survivorRow.ShortCode)
	}

	renumberedRow, err := e.store.Documents.Get(ctx, "backlog/general/alpha.md")
	if err != nil {
		t.Fatalf("get renumbered row: %v", err)
	}
	if renumberedRow.ShortCode == "METIS-T-0001" {
		t.Fatal("expected renumbered row's short code to differ from the survivor's")
	}

	raw, err := fsdal.Read(filepath.Join(root, "backlog/general/alpha.md"))
	if err != nil {
		t.Fatalf("read renumbered file: %v", err)
	}
	if !strings.Contains(string(raw), renumberedRow.ShortCode) {
		t.Fatal("expected renumbered file on disk to carry its new short code")
	}
}

func TestVerifyDetectsDiscrepancies(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()

	writeFixture(t, root, "backlog/general/synced.md", taskFixture("METIS-T-0001", "Synced"))
	writeFixture(t, root, "backlog/general/stale.md", taskFixture("METIS-T-0002", "Stale"))
	writeFixture(t, root, "backlog/general/unimported.md", taskFixture("METIS-T-0003", "Unimported"))

	if _, err := e.Import(ctx, "backlog/general/synced.md"); err != nil {
		t.Fatalf("import synced: %v", err)
	}
	if _, err := e.Import(ctx, "backlog/general/stale.md"); err != nil {
		t.Fatalf("import stale: %v", err)
	}

	edited := strings.Replace(taskFixture("METIS-T-0002", "Stale"), "Do the thing.\n", "Edited after sync.\n", 1)
	writeFixture(t, root, "backlog/general/stale.md", edited)

	if err := fsdal.RemoveFile(filepath.Join(root, "backlog/general/synced.md")); err != nil {
		t.Fatalf("remove synced: %v", err)
	}

	discrepancies, err := e.Verify(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	byKind := map[DiscrepancyKind]bool{}
	for _, d := range discrepancies {
		byKind[d.Kind] = true
	}
	if !byKind[MissingFromFilesystem] {
		t.Error("expected a MissingFromFilesystem discrepancy for the removed file")
	}
	if !byKind[OutOfSync] {
		t.Error("expected an OutOfSync discrepancy for the edited-after-sync file")
	}
	if !byKind[MissingFromDatabase] {
		t.Error("expected a MissingFromDatabase discrepancy for the never-imported file")
	}
}

func TestExportReconstructsDocumentFromProjection(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()
	rel := "backlog/general/recover-me.md"
	writeFixture(t, root, rel, taskFixture("METIS-T-0001", "Recover Me"))

	if _, err := e.Import(ctx, rel); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := fsdal.RemoveFile(filepath.Join(root, rel)); err != nil {
		t.Fatalf("remove original: %v", err)
	}

	if err := e.Export(ctx, rel); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := fsdal.Read(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	doc, err := document.Parse(document.FilePath(rel), raw)
	if err != nil {
		t.Fatalf("parse exported file: %v", err)
	}
	if doc.ShortCode != "METIS-T-0001" {
		t.Fatalf("expected short code METIS-T-0001, got %s", doc.ShortCode)
	}
	if doc.Title != "Recover Me" {
		t.Fatalf("expected title to round-trip, got %q", doc.Title)
	}
}
