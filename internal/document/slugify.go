package document

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-slug"
)

// maxSlugLength caps a title-derived DocumentId (spec §4.1 "Identifiers").
const maxSlugLength = 80

var defaultSlugger = slug.Default()

// SlugifyTitle normalizes title into a DocumentId candidate: NFC-normalized,
// ASCII-folded, capped at 80 characters, with unfoldable characters dropped
// rather than substituted.
func SlugifyTitle(title string) (string, error) {
	normalized, err := defaultSlugger.Normalize(title)
	if err != nil {
		return "", fmt.Errorf("document: slugify title: %w", err)
	}
	if len(normalized) > maxSlugLength {
		normalized = strings.TrimRight(normalized[:maxSlugLength], "-")
	}
	if normalized == "" {
		return "", fmt.Errorf("document: title %q normalizes to an empty slug", title)
	}
	return normalized, nil
}

// DedupeDocumentId appends a numeric suffix to base until it no longer
// collides with taken, per spec §4.1's "-2", "-3", ... dedup rule.
func DedupeDocumentId(base string, taken func(candidate string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf("-%d", n)
		max := maxSlugLength - len(suffix)
		trimmed := base
		if len(trimmed) > max {
			trimmed = strings.TrimRight(trimmed[:max], "-")
		}
		candidate := trimmed + suffix
		if !taken(candidate) {
			return candidate
		}
	}
}

// ADRDocumentId builds an ADR's {zero-padded number}-{title-slug} id.
func ADRDocumentId(number uint32, title string) (string, error) {
	slug, err := SlugifyTitle(title)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-%s", number, slug), nil
}
