package metis_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/colliery-io/metis"
	"github.com/colliery-io/metis/internal/config"
	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/syncengine"
	"github.com/colliery-io/metis/internal/template"
	"github.com/colliery-io/metis/internal/workspace"
)

func TestInitializeThenOpenRoundTrips(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	m, err := metis.Initialize(ctx, root, workspace.InitOptions{
		Prefix: "METIS",
		Mode:   config.ModeFull,
		Title:  "Metis Vision",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	m.Close()

	reopened, err := metis.Open(ctx, root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reopened.Close()

	if reopened.Workspace().Config.Workspace.Prefix != "METIS" {
		t.Fatalf("expected prefix METIS, got %s", reopened.Workspace().Config.Workspace.Prefix)
	}
}

func TestModuleCreateTransitionAndDiscover(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	m, err := metis.Initialize(ctx, root, workspace.InitOptions{
		Prefix: "METIS",
		Mode:   config.ModeDirect,
		Title:  "Metis Vision",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Close()

	created, err := m.Create(ctx, metis.CreateRequest{
		Type:    document.TypeTask,
		Title:   "Wire up the release checklist",
		Backlog: workspace.BacklogGeneral,
		Context: template.Context{"summary": "automate the release checklist"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	shortCode := string(created.ShortCode)

	result, err := m.Transition(ctx, shortCode, "active")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if result.To != "active" {
		t.Fatalf("expected phase active, got %s", result.To)
	}

	rel, err := m.Discover(ctx, shortCode)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if rel == "" {
		t.Fatal("expected a non-empty discovered path")
	}
}

func TestModuleSyncIsNoopWithoutSyncConfiguration(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	m, err := metis.Initialize(ctx, root, workspace.InitOptions{
		Prefix: "METIS",
		Mode:   config.ModeFull,
		Title:  "Metis Vision",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Close()

	result, err := m.Sync(ctx, metis.TransportOptions{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !result.IsNoop {
		t.Fatal("expected IsNoop for a workspace with no [sync] configuration")
	}
}

func TestModuleDirectorySyncImportsExternallyAddedFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	m, err := metis.Initialize(ctx, root, workspace.InitOptions{
		Prefix: "METIS",
		Mode:   config.ModeDirect,
		Title:  "Metis Vision",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Close()

	taskPath := filepath.Join(root, ".metis", "backlog", "general", "imported-task.md")
	if err := os.MkdirAll(filepath.Dir(taskPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := "---\n" +
		"id: imported-task\n" +
		"short_code: METIS-T-0001\n" +
		"title: Imported Task\n" +
		"level: task\n" +
		"tags: [phase/todo]\n" +
		"created_at: 2026-01-01T00:00:00Z\n" +
		"updated_at: 2026-01-01T00:00:00Z\n" +
		"---\n\n# Imported Task\n"
	if err := os.WriteFile(taskPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	report, err := m.DirectorySync(ctx)
	if err != nil {
		t.Fatalf("directory sync: %v", err)
	}
	if report.Counts[syncengine.Imported] == 0 {
		t.Fatal("expected the externally added file to be imported")
	}

	discrepancies, err := m.Verify(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Fatalf("expected no discrepancies after directory sync, got %v", discrepancies)
	}
}
