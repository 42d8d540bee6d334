package template

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/merr"
)

// Loader resolves a content template through the fallback chain:
// {workspace}/templates/{type}/{kind}.tpl -> {global}/templates/{type}/{kind}.tpl
// -> the built-in embedded template.
type Loader struct {
	workspaceDir string
	globalDir    string
}

// NewLoader builds a Loader rooted at a workspace directory (typically
// "{workspace}/.metis") and a user-global config directory. Either may be
// empty, in which case that link of the chain is skipped.
func NewLoader(workspaceDir, globalDir string) *Loader {
	return &Loader{workspaceDir: workspaceDir, globalDir: globalDir}
}

// Load resolves the raw template text for (type, kind) and renders it once
// against a synthesized sample context. Render substitutes only
// well-formed placeholders and never returns an error, so this pass
// rejects no template text: a malformed placeholder such as an unclosed
// "{{title" is returned unchanged. Load fails only for an unknown document
// type or when no source holds the template.
func (l *Loader) Load(t document.Type, k Kind) (string, error) {
	if _, ok := requiredVars[t]; !ok {
		return "", fmt.Errorf("template: unknown document type %q", t)
	}

	raw, source, err := l.resolve(t, k)
	if err != nil {
		return "", err
	}

	if _, err := Render(raw, sampleContext(t, k)); err != nil {
		return "", fmt.Errorf("%w: %s template for %s (%s): %v", merr.ErrTemplateValidationFailed, k, t, source, err)
	}

	return raw, nil
}

func (l *Loader) resolve(t document.Type, k Kind) (text, source string, err error) {
	rel := filepath.Join("templates", string(t), string(k)+".tpl")

	if l.workspaceDir != "" {
		path := filepath.Join(l.workspaceDir, rel)
		if data, err := os.ReadFile(path); err == nil {
			return string(data), "workspace:" + path, nil
		}
	}
	if l.globalDir != "" {
		path := filepath.Join(l.globalDir, rel)
		if data, err := os.ReadFile(path); err == nil {
			return string(data), "global:" + path, nil
		}
	}

	embeddedRel := "templates/" + string(t) + "/" + string(k) + ".tpl"
	data, err := embedded.ReadFile(embeddedRel)
	if err != nil {
		return "", "", fmt.Errorf("template: no %s template for %s in any source: %w", k, t, err)
	}
	return string(data), "embedded:" + embeddedRel, nil
}
