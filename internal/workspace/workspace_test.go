package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/template"
)

func newTestWorkspace(t *testing.T, mode config.Mode) *Workspace {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	w, err := Initialize(ctx, root, InitOptions{Prefix: "METIS", Mode: mode, Title: "Metis Vision"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestInitializeCreatesVisionAndRejectsDoubleInit(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	w, err := Initialize(ctx, root, InitOptions{Prefix: "METIS", Mode: config.ModeFull, Title: "Metis Vision"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer w.Close()

	if !metisDirExists(root) {
		t.Fatal("expected .metis to exist after Initialize")
	}

	_, err = Initialize(ctx, root, InitOptions{Prefix: "METIS", Mode: config.ModeFull})
	if err == nil {
		t.Fatal("expected second Initialize without Force to fail")
	}

	vision, err := w.LoadByShortCode(ctx, "METIS-V-0001")
	if err != nil {
		t.Fatalf("load vision: %v", err)
	}
	if vision.DocumentType != document.TypeVision {
		t.Fatalf("expected vision type, got %s", vision.DocumentType)
	}
}

func TestDetectWalksUpToWorkspaceRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	w, err := Initialize(ctx, root, InitOptions{Prefix: "METIS", Mode: config.ModeFull})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer w.Close()

	nested := filepath.Join(root, "a", "b", "c")
	found, err := Detect(nested)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if found != root {
		t.Fatalf("expected %s, got %s", root, found)
	}
}

func TestDetectFailsOutsideAnyWorkspace(t *testing.T) {
	if _, err := Detect(t.TempDir()); err == nil {
		t.Fatal("expected detect to fail with no .metis present")
	}
}

func createReq(typ document.Type, title, parent string) CreateRequest {
	return CreateRequest{
		Type:            typ,
		Title:           title,
		ParentShortCode: parent,
		Context:         template.Context{"summary": "Summary for " + title},
	}
}

func TestCreateFullModeHierarchy(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	strategy, err := w.Create(ctx, createReq(document.TypeStrategy, "Grow Enterprise Accounts", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	if strategy.ShortCode != "METIS-S-0001" {
		t.Fatalf("unexpected strategy short code: %s", strategy.ShortCode)
	}

	initiative, err := w.Create(ctx, createReq(document.TypeInitiative, "Launch Partner Program", string(strategy.ShortCode)))
	if err != nil {
		t.Fatalf("create initiative: %v", err)
	}
	if initiative.ShortCode != "METIS-I-0001" {
		t.Fatalf("unexpected initiative short code: %s", initiative.ShortCode)
	}

	task, err := w.Create(ctx, createReq(document.TypeTask, "Draft Partner Agreement", string(initiative.ShortCode)))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ShortCode != "METIS-T-0001" {
		t.Fatalf("unexpected task short code: %s", task.ShortCode)
	}
	wantPath := "strategies/grow-enterprise-accounts/initiatives/launch-partner-program/tasks/draft-partner-agreement.md"
	if string(task.FilePath) != wantPath {
		t.Fatalf("unexpected task path: %s", task.FilePath)
	}

	// A task with no parent lands in the backlog.
	backlogTask, err := w.Create(ctx, CreateRequest{
		Type:    document.TypeTask,
		Title:   "Investigate Flaky Import",
		Backlog: BacklogBug,
		Context: template.Context{"summary": "Track down the flaky import failure."},
	})
	if err != nil {
		t.Fatalf("create backlog task: %v", err)
	}
	if string(backlogTask.FilePath) != "backlog/bug/investigate-flaky-import.md" {
		t.Fatalf("unexpected backlog path: %s", backlogTask.FilePath)
	}
}

func TestCreateInitiativeWithoutStrategyRejectedInFullMode(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	_, err := w.Create(ctx, createReq(document.TypeInitiative, "Orphan Initiative", ""))
	if err == nil {
		t.Fatal("expected initiative creation without a parent strategy to fail in full mode")
	}
}

func TestCreateStreamlinedModeSkipsStrategy(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeStreamlined)

	if _, err := w.Create(ctx, createReq(document.TypeStrategy, "Should Not Work", "")); err == nil {
		t.Fatal("expected strategy creation to fail in streamlined mode")
	}

	initiative, err := w.Create(ctx, createReq(document.TypeInitiative, "Ship The Thing", ""))
	if err != nil {
		t.Fatalf("create initiative: %v", err)
	}
	if string(initiative.FilePath) != "initiatives/ship-the-thing/initiative.md" {
		t.Fatalf("unexpected initiative path: %s", initiative.FilePath)
	}
}

func TestCreateDirectModeParentsTasksOffVision(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeDirect)

	vision, err := w.LoadByShortCode(ctx, "METIS-V-0001")
	if err != nil {
		t.Fatalf("load vision: %v", err)
	}

	if _, err := w.Create(ctx, createReq(document.TypeInitiative, "Should Not Work", "")); err == nil {
		t.Fatal("expected initiative creation to fail in direct mode")
	}

	task, err := w.Create(ctx, createReq(document.TypeTask, "Fix The Build", string(vision.ShortCode)))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if string(task.FilePath) != "tasks/fix-the-build.md" {
		t.Fatalf("unexpected task path: %s", task.FilePath)
	}
}

func TestCreateADRIsFreestandingAndNumbered(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	req := createReq(document.TypeADR, "Use SQLite For The Projection Cache", "")
	req.Context["decision"] = "We will use SQLite."
	req.Context["consequences"] = "Simple ops, no separate server."
	req.DecisionMaker = "platform-team"

	adr, err := w.Create(ctx, req)
	if err != nil {
		t.Fatalf("create adr: %v", err)
	}
	if adr.ShortCode != "METIS-A-0001" {
		t.Fatalf("unexpected adr short code: %s", adr.ShortCode)
	}
	if string(adr.FilePath) != "adrs/0001-use-sqlite-for-the-projection-cache.md" {
		t.Fatalf("unexpected adr path: %s", adr.FilePath)
	}
}

func TestDiscoverFallsBackToWalkWhenProjectionMisses(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	created, err := w.Create(ctx, createReq(document.TypeStrategy, "Expand Into EU", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}

	// Simulate a stale/absent cache row: the walk-based fallback must still
	// resolve the short code from the file's own frontmatter.
	if err := w.Store.Documents.Delete(ctx, string(created.FilePath)); err != nil {
		t.Fatalf("delete projection row: %v", err)
	}

	rel, err := w.Discover(ctx, string(created.ShortCode))
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if rel != created.FilePath {
		t.Fatalf("expected %s, got %s", created.FilePath, rel)
	}
}

func TestValidateReportsStructuralErrors(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	created, err := w.Create(ctx, createReq(document.TypeStrategy, "Modernize Billing", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}

	result, err := w.Validate(ctx, created.FilePath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected freshly created document to validate, errors: %v", result.Errors)
	}
}

func TestTransitionAdvancesAndRejectsIllegalMoves(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	strategy, err := w.Create(ctx, createReq(document.TypeStrategy, "Reduce Churn", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	initiative, err := w.Create(ctx, createReq(document.TypeInitiative, "Win-Back Campaign", string(strategy.ShortCode)))
	if err != nil {
		t.Fatalf("create initiative: %v", err)
	}
	task, err := w.Create(ctx, createReq(document.TypeTask, "Write Win-Back Email", string(initiative.ShortCode)))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	result, err := w.Transition(ctx, string(task.ShortCode), "active")
	if err != nil {
		t.Fatalf("transition to active: %v", err)
	}
	if result.From != "todo" || result.To != "active" {
		t.Fatalf("unexpected transition: %s -> %s", result.From, result.To)
	}

	result, err = w.Transition(ctx, string(task.ShortCode), "completed")
	if err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	if result.To != "completed" {
		t.Fatalf("expected completed, got %s", result.To)
	}

	if _, err := w.Transition(ctx, string(task.ShortCode), "active"); err == nil {
		t.Fatal("expected transition out of a terminal phase to fail")
	}
}

func TestArchiveCascadesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	strategy, err := w.Create(ctx, createReq(document.TypeStrategy, "Consolidate Vendors", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	initiative, err := w.Create(ctx, createReq(document.TypeInitiative, "Vendor Audit", string(strategy.ShortCode)))
	if err != nil {
		t.Fatalf("create initiative: %v", err)
	}
	if _, err := w.Create(ctx, createReq(document.TypeTask, "Audit Vendor Contracts", string(initiative.ShortCode))); err != nil {
		t.Fatalf("create task: %v", err)
	}

	result, err := w.Archive(ctx, string(strategy.ShortCode))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if result.TotalArchived != 3 {
		t.Fatalf("expected 3 archived entries (strategy, initiative, task), got %d", result.TotalArchived)
	}

	again, err := w.Archive(ctx, string(strategy.ShortCode))
	if err != nil {
		t.Fatalf("second archive: %v", err)
	}
	if again.TotalArchived != 3 {
		t.Fatalf("expected idempotent re-archive to still report 3, got %d", again.TotalArchived)
	}
	for _, entry := range again.Entries {
		if entry.OriginalPath != entry.ArchivedPath {
			t.Fatalf("expected already-archived entry to be left in place: %+v", entry)
		}
	}
}

func TestReassignMovesTaskBetweenInitiativeAndBacklog(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	strategy, err := w.Create(ctx, createReq(document.TypeStrategy, "Platform Reliability", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	initiativeA, err := w.Create(ctx, createReq(document.TypeInitiative, "Incident Response Overhaul", string(strategy.ShortCode)))
	if err != nil {
		t.Fatalf("create initiative a: %v", err)
	}
	initiativeB, err := w.Create(ctx, createReq(document.TypeInitiative, "Alerting Rework", string(strategy.ShortCode)))
	if err != nil {
		t.Fatalf("create initiative b: %v", err)
	}
	task, err := w.Create(ctx, createReq(document.TypeTask, "Write Runbook", string(initiativeA.ShortCode)))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	moved, err := w.Reassign(ctx, string(task.ShortCode), ReassignRequest{NewParentShortCode: string(initiativeB.ShortCode)})
	if err != nil {
		t.Fatalf("reassign to initiative b: %v", err)
	}
	if moved.NewFilePath == moved.OldFilePath {
		t.Fatal("expected reassignment to change the file path")
	}

	toBacklog, err := w.Reassign(ctx, string(task.ShortCode), ReassignRequest{Backlog: BacklogTechDebt})
	if err != nil {
		t.Fatalf("reassign to backlog: %v", err)
	}
	if string(toBacklog.NewFilePath) != "backlog/tech-debt/write-runbook.md" {
		t.Fatalf("unexpected backlog path: %s", toBacklog.NewFilePath)
	}

	if _, err := w.Reassign(ctx, string(strategy.ShortCode), ReassignRequest{Backlog: BacklogGeneral}); err == nil {
		t.Fatal("expected reassigning a non-task to fail")
	}
}

func TestDeleteRemovesFileAndProjectionRow(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, config.ModeFull)

	created, err := w.Create(ctx, CreateRequest{
		Type:    document.TypeTask,
		Title:   "Throwaway Task",
		Backlog: BacklogGeneral,
		Context: template.Context{"summary": "Not needed."},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	result, err := w.Delete(ctx, string(created.ShortCode))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(result.RemovedFiles) != 1 || result.RemovedFiles[0] != created.FilePath {
		t.Fatalf("unexpected removed files: %+v", result.RemovedFiles)
	}

	if _, err := w.Discover(ctx, string(created.ShortCode)); err == nil {
		t.Fatal("expected discover to fail after delete")
	}
}

func TestRecoverSeedsDatabaseAndRaisesCounters(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	w, err := Initialize(ctx, root, InitOptions{Prefix: "METIS", Mode: config.ModeFull})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	strategy, err := w.Create(ctx, createReq(document.TypeStrategy, "Recoverable Strategy", ""))
	if err != nil {
		t.Fatalf("create strategy: %v", err)
	}
	w.Close()

	report, err := Recover(ctx, root)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if !report.DatabaseSeeded {
		t.Fatal("expected first recovery to seed the database from config.toml")
	}
	if report.CountersRaised["METIS:S"] != 1 {
		t.Fatalf("expected strategy counter raised to 1, got %d", report.CountersRaised["METIS:S"])
	}

	// A second recovery pass against the same state changes nothing further.
	report2, err := Recover(ctx, root)
	if err != nil {
		t.Fatalf("second recover: %v", err)
	}
	if report2.DatabaseSeeded {
		t.Fatal("expected second recovery not to re-seed an already-seeded database")
	}
	_ = strategy
}
