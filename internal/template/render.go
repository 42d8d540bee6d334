package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/colliery-io/metis/internal/document"
	"github.com/colliery-io/metis/internal/merr"
)

// Context supplies the named values a template's {{placeholders}} resolve
// against. Values absent from Context render as an empty string unless the
// variable is required for that (type, kind), which RenderFor checks
// up front.
type Context map[string]string

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Render performs lexical double-brace substitution over raw, leaving any
// placeholder not present in ctx as an empty string.
func Render(raw string, ctx Context) (string, error) {
	return placeholderPattern.ReplaceAllStringFunc(raw, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return ctx[name]
	}), nil
}

// RenderFor renders the (type, kind) template resolved by l, failing with
// an error wrapping merr.ErrTemplateValidationFailed if ctx is missing a
// value for any variable the template requires.
func (l *Loader) RenderFor(t document.Type, k Kind, ctx Context) (string, error) {
	raw, err := l.Load(t, k)
	if err != nil {
		return "", err
	}
	if missing := missingRequired(t, k, ctx); len(missing) > 0 {
		return "", fmt.Errorf("%w: missing required variables %s for %s %s", merr.ErrTemplateValidationFailed, strings.Join(missing, ", "), t, k)
	}
	return Render(raw, ctx)
}

func missingRequired(t document.Type, k Kind, ctx Context) []string {
	var missing []string
	for _, v := range requiredVars[t][k] {
		if strings.TrimSpace(ctx[v]) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}
