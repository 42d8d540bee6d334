// Package document implements the Metis Document Engine: the typed
// document model, the lifecycle (phase) state machine, and parse/
// serialize of a Markdown file with YAML frontmatter into one of the
// five document variants.
package document

import "time"

// Type identifies one of the five document variants.
type Type string

const (
	TypeVision     Type = "vision"
	TypeStrategy   Type = "strategy"
	TypeInitiative Type = "initiative"
	TypeTask       Type = "task"
	TypeADR        Type = "adr"
)

// Letter returns the short-code type letter for this document type.
func (t Type) Letter() string {
	switch t {
	case TypeVision:
		return "V"
	case TypeStrategy:
		return "S"
	case TypeInitiative:
		return "I"
	case TypeTask:
		return "T"
	case TypeADR:
		return "A"
	default:
		return ""
	}
}

// Valid reports whether t is one of the five known document types.
func (t Type) Valid() bool {
	switch t {
	case TypeVision, TypeStrategy, TypeInitiative, TypeTask, TypeADR:
		return true
	default:
		return false
	}
}

// RiskLevel is a Strategy-specific field.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// Complexity is an Initiative-specific field.
type Complexity string

const (
	ComplexityXS Complexity = "xs"
	ComplexityS  Complexity = "s"
	ComplexityM  Complexity = "m"
	ComplexityL  Complexity = "l"
	ComplexityXL Complexity = "xl"
)

func (c Complexity) Valid() bool {
	switch c {
	case ComplexityXS, ComplexityS, ComplexityM, ComplexityL, ComplexityXL:
		return true
	default:
		return false
	}
}

// ParentKind distinguishes the three ways a parent reference can appear in
// frontmatter (spec §9, "disabled-level parent encoding" open question).
type ParentKind int

const (
	// ParentNone means the key was absent: this document is root.
	ParentNone ParentKind = iota
	// ParentSet means a DocumentId was present.
	ParentSet
	// ParentDisabled means an explicit YAML null, or the legacy literal
	// string "NULL", marking that the parent level is disabled for this
	// configuration. Preserved on round-trip rather than normalized.
	ParentDisabled
)

// ParentReference captures the parent field's three possible states plus
// the raw form it was read in, so serialization can round-trip it exactly.
type ParentReference struct {
	Kind    ParentKind
	ID      DocumentId
	RawForm string // "", "null", or "NULL" — how ParentDisabled was spelled on disk.
}

// DocumentId is a title-derived slug, stable for the life of the document.
type DocumentId string

// ShortCode is the external handle: {PREFIX}-{TYPE}-{NNNN}.
type ShortCode string

// FilePath is workspace-relative, slash-separated.
type FilePath string

// Tag is a label attached to a document; exactly one tag in a document's
// tag set is the phase tag (#phase/<name>).
type Tag string

const phaseTagPrefix = "phase/"

// IsPhaseTag reports whether t has the form #phase/<name> (the # itself is
// stripped before tags reach this package; see frontmatter.go).
func (t Tag) IsPhaseTag() bool {
	return len(t) > len(phaseTagPrefix) && string(t[:len(phaseTagPrefix)]) == phaseTagPrefix
}

// PhaseName extracts <name> from a phase tag; empty if not a phase tag.
func (t Tag) PhaseName() string {
	if !t.IsPhaseTag() {
		return ""
	}
	return string(t[len(phaseTagPrefix):])
}

// NewPhaseTag builds a phase tag for the given phase name.
func NewPhaseTag(phase string) Tag {
	return Tag(phaseTagPrefix + phase)
}

// Common holds the fields shared by every document variant (spec §9,
// "Polymorphism" — shared record embedded in each variant, not inheritance).
type Common struct {
	ShortCode       ShortCode
	ID              DocumentId
	Title           string
	DocumentType    Type
	FilePath        FilePath
	Parent          ParentReference
	BlockedBy       []DocumentId
	Tags            []Tag
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExitCriteriaMet bool
	Archived        bool
	ContentBody     string
	AcceptanceCriteria *AcceptanceCriteria

	// Unknown preserves frontmatter keys the parser doesn't recognize, for
	// forward-compatible round-tripping.
	Unknown map[string]any
}

// AcceptanceCriteria is the structured view over a body's
// "## Acceptance Criteria" H2 section (spec §4.1 and §9 dedup rule).
type AcceptanceCriteria struct {
	Text string
	// ExtraOccurrences holds the verbatim text of any later
	// "## Acceptance Criteria" headers found in the body; these are
	// preserved untouched, never deduplicated or merged.
	ExtraOccurrences []string
}

// Document is a tagged variant over the five document types. Only the
// field(s) relevant to DocumentType are meaningful; the others are zero.
type Document struct {
	Common

	// Strategy-only.
	RiskLevel    RiskLevel
	Stakeholders []string

	// Initiative-only.
	EstimatedComplexity Complexity

	// ADR-only.
	Number        uint32
	DecisionMaker string
	DecisionDate  *time.Time
}

// Phase returns the document's current phase, derived from its one phase
// tag. Empty if no phase tag is present (a validation error at parse time).
func (d *Document) Phase() string {
	for _, t := range d.Tags {
		if name := t.PhaseName(); name != "" {
			return name
		}
	}
	return ""
}

// SetPhase replaces the document's phase tag, preserving every other tag
// and its relative order.
func (d *Document) SetPhase(phase string) {
	out := make([]Tag, 0, len(d.Tags)+1)
	replaced := false
	for _, t := range d.Tags {
		if t.IsPhaseTag() {
			if !replaced {
				out = append(out, NewPhaseTag(phase))
				replaced = true
			}
			continue
		}
		out = append(out, t)
	}
	if !replaced {
		out = append([]Tag{NewPhaseTag(phase)}, out...)
	}
	d.Tags = out
}
