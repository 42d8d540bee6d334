package document

import (
	"bytes"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Serialize renders a Document back to Markdown+YAML-frontmatter bytes with
// a fixed key order (spec §4.1 "Serialization" — round-tripping a file
// through Parse/Serialize must be byte-stable when nothing changed).
func Serialize(d *Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	add := func(key string, value *yaml.Node) {
		if value == nil {
			return
		}
		root.Content = append(root.Content, scalar(key), value)
	}
	addStr := func(key, value string) { add(key, scalar(value)) }

	addStr("short_code", string(d.ShortCode))
	addStr("id", string(d.ID))
	addStr("title", d.Title)
	addStr("level", string(d.DocumentType))
	add("parent", parentNode(d.Parent))
	add("blocked_by", stringSeq(blockedByStrings(d.BlockedBy)))
	add("tags", stringSeq(tagStrings(d.Tags)))
	addStr("created_at", d.CreatedAt.UTC().Format(timestampLayout))
	addStr("updated_at", d.UpdatedAt.UTC().Format(timestampLayout))
	add("exit_criteria_met", boolNode(d.ExitCriteriaMet))
	add("archived", boolNode(d.Archived))

	switch d.DocumentType {
	case TypeStrategy:
		addStr("risk_level", string(d.RiskLevel))
		add("stakeholders", stringSeq(d.Stakeholders))
	case TypeInitiative:
		addStr("estimated_complexity", string(d.EstimatedComplexity))
	case TypeADR:
		add("number", intNode(int64(d.Number)))
		addStr("decision_maker", d.DecisionMaker)
		if d.DecisionDate != nil {
			addStr("decision_date", d.DecisionDate.UTC().Format(timestampLayout))
		}
	}

	for _, key := range sortedKeys(d.Unknown) {
		var valueNode yaml.Node
		if err := valueNode.Encode(d.Unknown[key]); err != nil {
			return nil, err
		}
		add(key, &valueNode)
	}

	fmBytes, err := yaml.Marshal(root)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fmBytes)
	buf.WriteString("---\n\n")
	buf.WriteString(bodyWithAcceptanceCriteria(d))
	return buf.Bytes(), nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func boolNode(value bool) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	_ = n.Encode(value)
	return n
}

func intNode(value int64) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	_ = n.Encode(value)
	return n
}

func stringSeq(values []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		seq.Content = append(seq.Content, scalar(v))
	}
	return seq
}

// parentNode renders ParentReference back to its original spelling: a
// DocumentId string, an explicit YAML null, the legacy "NULL" literal, or
// (ParentNone) no key at all — a root document never had a parent field to
// begin with, and writing one back as null would turn it into ParentDisabled
// on the next parse.
func parentNode(p ParentReference) *yaml.Node {
	switch p.Kind {
	case ParentSet:
		return scalar(string(p.ID))
	case ParentDisabled:
		if p.RawForm == "NULL" {
			return scalar("NULL")
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	default:
		return nil
	}
}

func blockedByStrings(ids []DocumentId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// tagStrings renders the tag set with the phase tag first, followed by the
// remaining tags in sorted order, each re-prefixed with #.
func tagStrings(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	var phase Tag
	for _, t := range tags {
		if t.IsPhaseTag() {
			phase = t
			continue
		}
	}
	if phase != "" {
		out = append(out, "#"+string(phase))
	}
	rest := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.IsPhaseTag() {
			continue
		}
		rest = append(rest, "#"+string(t))
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bodyWithAcceptanceCriteria re-inserts the (possibly edited) acceptance
// criteria section into ContentBody. ContentBody already carries the
// section as originally parsed; UpdateAcceptanceCriteria (sections.go)
// mutates it in place, so this is a pass-through unless no section exists
// yet and AcceptanceCriteria is set.
func bodyWithAcceptanceCriteria(d *Document) string {
	if d.AcceptanceCriteria != nil && d.AcceptanceCriteria.Text != "" && !strings.Contains(d.ContentBody, "## Acceptance Criteria") {
		return AppendSection(d.ContentBody, "Acceptance Criteria", d.AcceptanceCriteria.Text)
	}
	return d.ContentBody
}
