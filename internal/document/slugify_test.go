package document

import "testing"

func TestSlugifyTitleBasic(t *testing.T) {
	got, err := SlugifyTitle("Improve Customer Onboarding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "improve-customer-onboarding" {
		t.Fatalf("got %q", got)
	}
}

func TestSlugifyTitleCapsLength(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "word "
	}
	got, err := SlugifyTitle(long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > maxSlugLength {
		t.Fatalf("slug length %d exceeds cap %d", len(got), maxSlugLength)
	}
}

func TestDedupeDocumentIdAppendsSuffix(t *testing.T) {
	taken := map[string]bool{"improve-onboarding": true, "improve-onboarding-2": true}
	got := DedupeDocumentId("improve-onboarding", func(c string) bool { return taken[c] })
	if got != "improve-onboarding-3" {
		t.Fatalf("got %q, want improve-onboarding-3", got)
	}
}

func TestDedupeDocumentIdNoCollision(t *testing.T) {
	got := DedupeDocumentId("unique-title", func(string) bool { return false })
	if got != "unique-title" {
		t.Fatalf("got %q, want unique-title", got)
	}
}

func TestADRDocumentId(t *testing.T) {
	got, err := ADRDocumentId(7, "Use SQLite for the projection cache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0007-use-sqlite-for-the-projection-cache" {
		t.Fatalf("got %q", got)
	}
}
