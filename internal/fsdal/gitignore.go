package fsdal

import (
	"os"
	"path/filepath"
	"strings"
)

// gitignorePattern is one parsed line of a .gitignore file.
type gitignorePattern struct {
	pattern  string
	dirOnly  bool
	anchored bool
}

type gitignoreMatcher struct {
	patterns []gitignorePattern
}

// loadGitignore reads root/.gitignore if present; a missing file yields an
// empty (never-matching) matcher rather than an error.
func loadGitignore(root string) (*gitignoreMatcher, error) {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return &gitignoreMatcher{}, nil
		}
		return nil, err
	}

	m := &gitignoreMatcher{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		p := gitignorePattern{pattern: trimmed}
		if strings.HasSuffix(p.pattern, "/") {
			p.dirOnly = true
			p.pattern = strings.TrimSuffix(p.pattern, "/")
		}
		if strings.HasPrefix(p.pattern, "/") {
			p.anchored = true
			p.pattern = strings.TrimPrefix(p.pattern, "/")
		}
		if p.pattern == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// matches reports whether rel (slash-separated, workspace-relative) is
// ignored. Honors dir-only ("foo/") and root-anchored ("/foo") patterns;
// unanchored patterns match any path segment, per gitignore semantics.
func (m *gitignoreMatcher) matches(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.anchored {
			if ok, _ := filepath.Match(p.pattern, rel); ok {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(p.pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p.pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
