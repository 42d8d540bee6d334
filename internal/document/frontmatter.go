package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/colliery-io/metis/internal/merr"
)

// timestampLayout is ISO-8601 UTC with microsecond precision (spec §4.1
// "Serialization").
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// frontMatterEnvelope captures the canonical frontmatter keys (spec §6) by
// name, with a raw yaml.Node for "parent" (so absent / explicit null / the
// legacy "NULL" literal can be told apart — spec §9 open question) and an
// inline catch-all map for forward-compatible unknown keys.
type frontMatterEnvelope struct {
	Level               string    `yaml:"level"`
	ID                  string    `yaml:"id"`
	Title               string    `yaml:"title"`
	ShortCode           string    `yaml:"short_code"`
	CreatedAt           string    `yaml:"created_at"`
	UpdatedAt           string    `yaml:"updated_at"`
	Parent              yaml.Node `yaml:"parent"`
	BlockedBy           []string  `yaml:"blocked_by"`
	Archived            bool      `yaml:"archived"`
	Tags                []string  `yaml:"tags"`
	ExitCriteriaMet     bool      `yaml:"exit_criteria_met"`
	RiskLevel           string    `yaml:"risk_level"`
	Stakeholders        []string  `yaml:"stakeholders"`
	EstimatedComplexity string    `yaml:"estimated_complexity"`
	Number              *uint32   `yaml:"number"`
	DecisionMaker       string    `yaml:"decision_maker"`
	DecisionDate        string    `yaml:"decision_date"`

	Custom map[string]any `yaml:",inline"`
}

// Parse reads a raw Markdown file (frontmatter + body) into a typed
// Document. Unknown level values fail with ErrInvalidDocumentType; a
// missing required field fails with MissingRequiredFieldError.
func Parse(filePath FilePath, source []byte) (*Document, error) {
	var env frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &env)
	if err != nil {
		return nil, fmt.Errorf("document: parse frontmatter %s: %w", filePath, err)
	}

	docType := Type(strings.ToLower(strings.TrimSpace(env.Level)))
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: %q in %s", merr.ErrInvalidDocumentType, env.Level, filePath)
	}

	if strings.TrimSpace(env.Title) == "" {
		return nil, &merr.MissingRequiredFieldError{Field: "title", FilePath: string(filePath)}
	}
	if strings.TrimSpace(env.ID) == "" {
		return nil, &merr.MissingRequiredFieldError{Field: "id", FilePath: string(filePath)}
	}

	tags, err := parseTags(docType, env.Tags, filePath)
	if err != nil {
		return nil, err
	}

	parentRef, err := parseParent(env.Parent)
	if err != nil {
		return nil, err
	}

	createdAt, err := parseTimestamp(env.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("document: created_at in %s: %w", filePath, err)
	}
	updatedAt, err := parseTimestamp(env.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("document: updated_at in %s: %w", filePath, err)
	}

	blocked := make([]DocumentId, 0, len(env.BlockedBy))
	for _, b := range env.BlockedBy {
		blocked = append(blocked, DocumentId(b))
	}

	body, acceptance := extractAcceptanceCriteria(body)

	doc := &Document{
		Common: Common{
			ShortCode:          ShortCode(env.ShortCode),
			ID:                 DocumentId(env.ID),
			Title:              env.Title,
			DocumentType:       docType,
			FilePath:           filePath,
			Parent:             parentRef,
			BlockedBy:          blocked,
			Tags:               tags,
			CreatedAt:          createdAt,
			UpdatedAt:          updatedAt,
			ExitCriteriaMet:    env.ExitCriteriaMet,
			Archived:           env.Archived,
			ContentBody:        string(body),
			AcceptanceCriteria: acceptance,
			Unknown:            env.Custom,
		},
	}

	switch docType {
	case TypeStrategy:
		doc.RiskLevel = RiskLevel(strings.ToLower(env.RiskLevel))
		if env.RiskLevel != "" && !doc.RiskLevel.Valid() {
			return nil, fmt.Errorf("document: invalid risk_level %q in %s", env.RiskLevel, filePath)
		}
		doc.Stakeholders = append([]string(nil), env.Stakeholders...)
	case TypeInitiative:
		doc.EstimatedComplexity = Complexity(strings.ToLower(env.EstimatedComplexity))
		if env.EstimatedComplexity != "" && !doc.EstimatedComplexity.Valid() {
			return nil, fmt.Errorf("document: invalid estimated_complexity %q in %s", env.EstimatedComplexity, filePath)
		}
	case TypeADR:
		if env.Number == nil {
			return nil, &merr.MissingRequiredFieldError{Field: "number", FilePath: string(filePath)}
		}
		doc.Number = *env.Number
		doc.DecisionMaker = env.DecisionMaker
		if env.DecisionDate != "" {
			dd, err := parseTimestamp(env.DecisionDate)
			if err != nil {
				return nil, fmt.Errorf("document: decision_date in %s: %w", filePath, err)
			}
			doc.DecisionDate = &dd
		}
	}

	return doc, nil
}

func parseTags(t Type, raw []string, filePath FilePath) ([]Tag, error) {
	tags := make([]Tag, 0, len(raw))
	phaseSeen := false
	for _, r := range raw {
		trimmed := strings.TrimPrefix(strings.TrimSpace(r), "#")
		tag := Tag(trimmed)
		if tag.IsPhaseTag() {
			name := tag.PhaseName()
			if !ValidPhase(t, name) {
				return nil, fmt.Errorf("%w: %q for type %s in %s", merr.ErrInvalidPhase, name, t, filePath)
			}
			phaseSeen = true
		}
		tags = append(tags, tag)
	}
	if !phaseSeen {
		return nil, &merr.MissingRequiredFieldError{Field: "phase tag", FilePath: string(filePath)}
	}
	return tags, nil
}

func parseParent(node yaml.Node) (ParentReference, error) {
	if node.Kind == 0 {
		return ParentReference{Kind: ParentNone}, nil
	}
	if node.Tag == "!!null" {
		return ParentReference{Kind: ParentDisabled, RawForm: "null"}, nil
	}
	var value string
	if err := node.Decode(&value); err != nil {
		return ParentReference{}, fmt.Errorf("document: parent field: %w", err)
	}
	if value == "NULL" {
		return ParentReference{Kind: ParentDisabled, RawForm: "NULL"}, nil
	}
	if value == "" {
		return ParentReference{Kind: ParentNone}, nil
	}
	return ParentReference{Kind: ParentSet, ID: DocumentId(value)}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(timestampLayout, value); err == nil {
		return t.UTC(), nil
	}
	// Tolerate RFC3339 for forward/backward compatibility with hand-edited files.
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// extractAcceptanceCriteria locates the first "## Acceptance Criteria" H2
// section in body, returning the body with that first occurrence intact
// (callers mutate it via sections.go) and a structured view of it. Any
// later occurrences of the same heading are left untouched in the body
// text, never deduplicated (spec §9).
func extractAcceptanceCriteria(body []byte) ([]byte, *AcceptanceCriteria) {
	const heading = "## Acceptance Criteria"
	text := string(body)
	idx := strings.Index(text, heading)
	if idx == -1 {
		return body, nil
	}

	rest := text[idx+len(heading):]
	end := findNextH2(rest)
	section := strings.TrimSpace(rest[:end])

	var extra []string
	remaining := rest[end:]
	for {
		next := strings.Index(remaining, heading)
		if next == -1 {
			break
		}
		afterHeading := remaining[next+len(heading):]
		endExtra := findNextH2(afterHeading)
		extra = append(extra, strings.TrimSpace(afterHeading[:endExtra]))
		remaining = afterHeading[endExtra:]
	}

	return body, &AcceptanceCriteria{Text: section, ExtraOccurrences: extra}
}

// findNextH2 returns the offset of the next "\n## " heading in s, or
// len(s) if there is none.
func findNextH2(s string) int {
	idx := strings.Index(s, "\n## ")
	if idx == -1 {
		return len(s)
	}
	return idx + 1
}
