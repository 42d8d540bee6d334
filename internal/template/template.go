// Package template implements the Metis content template loader: a
// fallback chain over workspace, user-global, and embedded built-in
// templates, rendered by lexical double-brace substitution.
package template

import (
	"embed"

	"github.com/colliery-io/metis/internal/document"
)

//go:embed templates
var embedded embed.FS

// Kind is one of the two template kinds Metis renders per document type.
type Kind string

const (
	KindContent      Kind = "content"
	KindExitCriteria Kind = "exit_criteria"
)

// requiredVars lists the placeholders a template for (type, kind) must be
// able to resolve; anything else referenced in a template is treated as
// optional and defaults to an empty string.
var requiredVars = map[document.Type]map[Kind][]string{
	document.TypeVision: {
		KindContent:      {"title", "short_code", "summary"},
		KindExitCriteria: {"summary"},
	},
	document.TypeStrategy: {
		KindContent:      {"title", "short_code", "parent_title", "risk_level", "stakeholders", "summary"},
		KindExitCriteria: {"summary"},
	},
	document.TypeInitiative: {
		KindContent:      {"title", "short_code", "parent_title", "estimated_complexity", "summary"},
		KindExitCriteria: {"summary"},
	},
	document.TypeTask: {
		KindContent:      {"title", "short_code", "parent_title", "summary"},
		KindExitCriteria: {"summary"},
	},
	document.TypeADR: {
		KindContent:      {"number", "title", "short_code", "decision_maker", "summary", "decision", "consequences"},
		KindExitCriteria: {"summary"},
	},
}

// sampleContext synthesizes a value for every required variable of
// (type,kind), used to validate a template at load time.
func sampleContext(t document.Type, k Kind) Context {
	ctx := Context{}
	for _, v := range requiredVars[t][k] {
		ctx[v] = "sample"
	}
	return ctx
}
