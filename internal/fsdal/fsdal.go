// Package fsdal implements the Metis filesystem data-access layer: the
// thin, synchronous primitives a storage layer needs — atomic write,
// distinguishing-not-found read, content hashing, and a .md-filtered
// directory walk — with no knowledge of documents or the projection.
package fsdal

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// excludedDirs are never descended into by Walk.
var excludedDirs = map[string]bool{
	".git":         true,
	"target":       true,
	"node_modules": true,
	"__pycache__":  true,
}

// Write persists data to path atomically: it writes to a temp file in the
// same directory, fsyncs it, then renames it over the destination. A
// half-written file is never observable at path.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsdal: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("fsdal: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("fsdal: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsdal: fsync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsdal: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fsdal: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// Move relocates the file at src to dest, creating dest's parent
// directories as needed. Used by archive/reassignment operations that
// relocate a document while preserving its content unchanged.
func Move(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("fsdal: mkdir %s: %w", filepath.Dir(dest), err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("fsdal: move %s -> %s: %w", src, dest, err)
	}
	return nil
}

// RemoveFile deletes the file at path. Missing files are not an error.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsdal: remove %s: %w", path, err)
	}
	return nil
}

// RemoveEmptyDir removes dir if it exists and is empty. A non-empty
// directory, or one that no longer exists, is left alone rather than
// reported as an error — Deletion's subfolder cleanup is best-effort
// (spec §4.5 "Deletion").
func RemoveEmptyDir(dir string) {
	os.Remove(dir)
}

// Read returns the contents of path, or a wrapped fs.ErrNotExist the
// caller can distinguish with errors.Is.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fsdal: read %s: %w", path, err)
		}
		return nil, fmt.Errorf("fsdal: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Hash returns a deterministic, collision-resistant content hash.
func Hash(content []byte) [32]byte {
	return sha256.Sum256(content)
}

// HashHex is Hash rendered as a lowercase hex string, the form stored in
// the projection's file_hash column.
func HashHex(content []byte) string {
	sum := Hash(content)
	return fmt.Sprintf("%x", sum)
}

// Walk returns every ".md" file under root (workspace-relative paths,
// slash-separated), skipping .git, target, node_modules, and
// __pycache__, and honoring a .gitignore at the walk root if present.
func Walk(root string) ([]string, error) {
	ignore, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if ignore.matches(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(rel) != ".md" {
			return nil
		}
		if ignore.matches(rel, false) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("fsdal: walk %s: %w", root, walkErr)
	}
	return files, nil
}
