package projection

import (
	"context"
	"fmt"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/colliery-io/metis/pkg/testsupport"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqldb, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func TestDocumentsUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := &DocumentRow{
		FilePath:     "tasks/do-the-thing.md",
		ID:           "do-the-thing",
		ShortCode:    "PROJ-T-0001",
		Title:        "Do the thing",
		DocumentType: "task",
		Phase:        "todo",
		CreatedAt:    "2026-01-01T00:00:00.000000Z",
		UpdatedAt:    "2026-01-01T00:00:00.000000Z",
		FileHash:     "abc123",
	}
	if err := store.Documents.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Documents.Get(ctx, "tasks/do-the-thing.md")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Do the thing" || got.ShortCode != "PROJ-T-0001" {
		t.Fatalf("unexpected row: %+v", got)
	}

	row.Phase = "active"
	if err := store.Documents.Upsert(ctx, row); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, err = store.Documents.Get(ctx, "tasks/do-the-thing.md")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Phase != "active" {
		t.Fatalf("got phase %q, want active", got.Phase)
	}
}

func TestDocumentsGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Documents.Get(context.Background(), "nope.md"); err == nil {
		t.Fatal("expected an error for a missing document")
	}
}

func TestFindChildrenExcludesArchivedByDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, row := range []*DocumentRow{
		{FilePath: "a.md", ID: "a", ShortCode: "P-T-0001", Title: "A", DocumentType: "task", Phase: "todo", ParentID: "parent", CreatedAt: "x", UpdatedAt: "x", FileHash: "h"},
		{FilePath: "b.md", ID: "b", ShortCode: "P-T-0002", Title: "B", DocumentType: "task", Phase: "todo", ParentID: "parent", Archived: true, CreatedAt: "x", UpdatedAt: "x", FileHash: "h"},
	} {
		if err := store.Documents.Upsert(ctx, row); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	children, err := store.Documents.FindChildren(ctx, "parent", false)
	if err != nil {
		t.Fatalf("find children: %v", err)
	}
	if len(children) != 1 || children[0].FilePath != "a.md" {
		t.Fatalf("got %+v, want only a.md", children)
	}

	all, err := store.Documents.FindChildren(ctx, "parent", true)
	if err != nil {
		t.Fatalf("find children (include archived): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rows, want 2", len(all))
	}
}

func TestGenerateShortCodeIsMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Config.GenerateShortCode(ctx, "PROJ", "T")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := store.Config.GenerateShortCode(ctx, "PROJ", "T")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first != "PROJ-T-0001" || second != "PROJ-T-0002" {
		t.Fatalf("got %q, %q", first, second)
	}

	other, err := store.Config.GenerateShortCode(ctx, "PROJ", "I")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if other != "PROJ-I-0001" {
		t.Fatalf("got %q, want a counter independent per type", other)
	}
}

func TestSetCounterIfLowerNeverLowers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Config.GenerateShortCode(ctx, "PROJ", "T"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := store.Config.GenerateShortCode(ctx, "PROJ", "T"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	// counter is now 2; recovery observes a lower suffix on disk.
	if err := store.Config.SetCounterIfLower(ctx, "PROJ", "T", 1); err != nil {
		t.Fatalf("set counter: %v", err)
	}
	next, err := store.Config.GenerateShortCode(ctx, "PROJ", "T")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if next != "PROJ-T-0003" {
		t.Fatalf("got %q, want PROJ-T-0003 (counter must not have been lowered)", next)
	}

	if err := store.Config.SetCounterIfLower(ctx, "PROJ", "T", 10); err != nil {
		t.Fatalf("set counter: %v", err)
	}
	next, err = store.Config.GenerateShortCode(ctx, "PROJ", "T")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if next != "PROJ-T-0011" {
		t.Fatalf("got %q, want PROJ-T-0011", next)
	}
}

func TestSanitizeQueryHandlesHyphenatedShortCodes(t *testing.T) {
	got := SanitizeQuery("PROJ-T-0042")
	if got != `"PROJ-T-0042"` {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeQueryDropsUnbalancedQuotes(t *testing.T) {
	got := SanitizeQuery(`onboarding "flow`)
	if got != "onboarding flow" {
		t.Fatalf("got %q", got)
	}
}

func TestSearchRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Search.Index(ctx, "tasks/onboarding.md", "Improve onboarding", "redesign the onboarding flow", "task"); err != nil {
		t.Fatalf("index: %v", err)
	}

	results, err := store.Search.Search(ctx, "onboarding", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].FilePath != "tasks/onboarding.md" {
		t.Fatalf("got %+v", results)
	}

	if err := store.Search.Delete(ctx, "tasks/onboarding.md"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	results, err = store.Search.Search(ctx, "onboarding", 10)
	if err != nil {
		t.Fatalf("search after delete: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after delete, got %+v", results)
	}
}

func TestTagsReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Tags.Replace(ctx, "tasks/a.md", []string{"#phase/todo", "#bug"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	tags, err := store.Tags.ForDocument(ctx, "tasks/a.md")
	if err != nil {
		t.Fatalf("for document: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %v", tags)
	}

	if err := store.Tags.Replace(ctx, "tasks/a.md", []string{"#phase/active"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	tags, err = store.Tags.ForDocument(ctx, "tasks/a.md")
	if err != nil {
		t.Fatalf("for document: %v", err)
	}
	if len(tags) != 1 || tags[0] != "#phase/active" {
		t.Fatalf("got %v", tags)
	}
}

func TestRelationshipsSetAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := &RelationshipRow{
		ParentID:       "parent-id",
		ChildID:        "child-id",
		ParentFilePath: "initiatives/parent/initiative.md",
		ChildFilePath:  "initiatives/parent/tasks/child.md",
	}
	if err := store.Relationships.Set(ctx, row); err != nil {
		t.Fatalf("set: %v", err)
	}

	children, err := store.Relationships.Children(ctx, row.ParentFilePath)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("got %v", children)
	}

	if err := store.Relationships.Clear(ctx, row.ChildFilePath); err != nil {
		t.Fatalf("clear: %v", err)
	}
	parent, err := store.Relationships.Parent(ctx, row.ChildFilePath)
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if parent != nil {
		t.Fatalf("expected no parent after clear, got %+v", parent)
	}
}

func TestSyncRunsStartAndFinish(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SyncRuns.Start(ctx, "METIS")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty run id")
	}

	if err := store.SyncRuns.Finish(ctx, id, 2, 3, 1, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := store.SyncRuns.Recent(ctx, "METIS", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Outcome != SyncRunCompleted {
		t.Fatalf("expected outcome %q, got %q", SyncRunCompleted, runs[0].Outcome)
	}
	if runs[0].Pulled != 2 || runs[0].Pushed != 3 || runs[0].RetryCount != 1 {
		t.Fatalf("unexpected counts: %+v", runs[0])
	}
}

func TestSyncRunsFinishRecordsFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SyncRuns.Start(ctx, "METIS")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.SyncRuns.Finish(ctx, id, 0, 0, 3, fmt.Errorf("push rejected")); err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := store.SyncRuns.Recent(ctx, "METIS", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if runs[0].Outcome != SyncRunFailed {
		t.Fatalf("expected outcome %q, got %q", SyncRunFailed, runs[0].Outcome)
	}
	if runs[0].Error == "" {
		t.Fatal("expected a recorded error message")
	}
}
