package workspace

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/colliery-io/metis/internal/document"
)

// MetisDir is the workspace's control directory name.
const MetisDir = ".metis"

const (
	configFileName = "config.toml"
	dbFileName     = "metis.db"
	visionFileName = "vision.md"
)

// BacklogCategory is one of the folders a parentless task can be filed
// under (spec §4.5 "Reassignment").
type BacklogCategory string

const (
	BacklogBug       BacklogCategory = "bug"
	BacklogFeature   BacklogCategory = "feature"
	BacklogTechDebt  BacklogCategory = "tech-debt"
	BacklogGeneral   BacklogCategory = "general"
)

func (c BacklogCategory) Valid() bool {
	switch c {
	case BacklogBug, BacklogFeature, BacklogTechDebt, BacklogGeneral:
		return true
	default:
		return false
	}
}

// canonicalPath computes the workspace-relative path a new document of
// type t, with the given slug, should live at, given its parent (nil for a
// root Vision or an unparented backlog task). Layout is spec §6's "On-disk
// layout (workspace)".
func canonicalPath(t document.Type, parent *document.Document, slug string, backlog BacklogCategory) (document.FilePath, error) {
	switch t {
	case document.TypeVision:
		return document.FilePath(visionFileName), nil

	case document.TypeStrategy:
		return document.FilePath(fmt.Sprintf("strategies/%s/strategy.md", slug)), nil

	case document.TypeInitiative:
		if parent != nil && parent.DocumentType == document.TypeStrategy {
			dir := path.Dir(string(parent.FilePath))
			return document.FilePath(fmt.Sprintf("%s/initiatives/%s/initiative.md", dir, slug)), nil
		}
		// Streamlined mode: initiative nests directly off the vision.
		return document.FilePath(fmt.Sprintf("initiatives/%s/initiative.md", slug)), nil

	case document.TypeTask:
		if parent != nil {
			switch parent.DocumentType {
			case document.TypeInitiative:
				dir := path.Dir(string(parent.FilePath))
				return document.FilePath(fmt.Sprintf("%s/tasks/%s.md", dir, slug)), nil
			case document.TypeVision:
				// Direct mode: task nests directly off the vision.
				return document.FilePath(fmt.Sprintf("tasks/%s.md", slug)), nil
			}
		}
		if backlog == "" {
			backlog = BacklogGeneral
		}
		return document.FilePath(fmt.Sprintf("backlog/%s/%s.md", backlog, slug)), nil

	case document.TypeADR:
		return document.FilePath(fmt.Sprintf("adrs/%s.md", slug)), nil

	default:
		return "", fmt.Errorf("workspace: unknown document type %q", t)
	}
}

// archivedPath mirrors original under archived/, preserving relative
// structure so unarchiving is symmetric (spec §4.5 "Archive").
func archivedPath(original document.FilePath) document.FilePath {
	return document.FilePath("archived/" + strings.TrimPrefix(string(original), "/"))
}

func configPath(root string) string {
	return filepath.Join(root, MetisDir, configFileName)
}

func dbPath(root string) string {
	return filepath.Join(root, MetisDir, dbFileName)
}

func templatesDir(root string) string {
	return filepath.Join(root, MetisDir, "templates")
}

// metisRoot returns the host filesystem path of the .metis control directory.
func metisRoot(root string) string {
	return filepath.Join(root, MetisDir)
}

// abs joins the workspace root, the .metis directory, and a
// workspace-relative document path into a host filesystem path.
func abs(root string, rel document.FilePath) string {
	return filepath.Join(root, MetisDir, filepath.FromSlash(string(rel)))
}
