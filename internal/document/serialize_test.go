package document

import (
	"strings"
	"testing"
)

func TestSerializeParseRoundTrip(t *testing.T) {
	doc, err := Parse("initiatives/improve-onboarding/initiative.md", []byte(sampleInitiative))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	reparsed, err := Parse(doc.FilePath, out)
	if err != nil {
		t.Fatalf("reparse: %v\n--- output ---\n%s", err, out)
	}

	if reparsed.ID != doc.ID || reparsed.Title != doc.Title || reparsed.DocumentType != doc.DocumentType {
		t.Fatalf("round trip changed identity: %+v vs %+v", reparsed.Common, doc.Common)
	}
	if reparsed.Phase() != doc.Phase() {
		t.Fatalf("round trip changed phase: %q vs %q", reparsed.Phase(), doc.Phase())
	}
	if reparsed.Parent != doc.Parent {
		t.Fatalf("round trip changed parent: %+v vs %+v", reparsed.Parent, doc.Parent)
	}
	if reparsed.EstimatedComplexity != doc.EstimatedComplexity {
		t.Fatalf("round trip changed complexity: %q vs %q", reparsed.EstimatedComplexity, doc.EstimatedComplexity)
	}
}

func TestSerializePreservesDisabledParentSpelling(t *testing.T) {
	doc, err := Parse("x.md", []byte(strings.Replace(sampleInitiative, "parent: proj-vision", `parent: "NULL"`, 1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(string(out), `parent: "NULL"`) {
		t.Fatalf("expected legacy NULL literal to round-trip, got:\n%s", out)
	}
}

func TestSerializeOmitsParentKeyWhenRootDocument(t *testing.T) {
	src := strings.Replace(sampleInitiative, "parent: proj-vision\n", "", 1)
	doc, err := Parse("x.md", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Parent.Kind != ParentNone {
		t.Fatalf("fixture precondition failed: got parent kind %v", doc.Parent.Kind)
	}

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Contains(string(out), "parent:") {
		t.Fatalf("expected no parent key for a root document, got:\n%s", out)
	}

	reparsed, err := Parse(doc.FilePath, out)
	if err != nil {
		t.Fatalf("reparse: %v\n--- output ---\n%s", err, out)
	}
	if reparsed.Parent.Kind != ParentNone {
		t.Fatalf("round trip turned an absent parent into %+v", reparsed.Parent)
	}
}

func TestSerializeOrdersPhaseTagFirst(t *testing.T) {
	doc, err := Parse("x.md", []byte(sampleInitiative))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc.Tags = append(doc.Tags, "team/growth")
	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	text := string(out)
	phaseIdx := strings.Index(text, "#phase/discovery")
	otherIdx := strings.Index(text, "#team/growth")
	if phaseIdx == -1 || otherIdx == -1 || phaseIdx > otherIdx {
		t.Fatalf("expected phase tag before other tags, got:\n%s", text)
	}
}
