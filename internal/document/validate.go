package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/colliery-io/metis/internal/merr"
)

// shortCodePattern matches {PREFIX}-{TYPE_LETTER}-{NNNN} (spec §4.1
// "Identifiers"): an uppercase alphanumeric prefix, a single type letter,
// and a zero-padded monotonic counter of at least 4 digits.
var shortCodePattern = regexp.MustCompile(`^[A-Z0-9]+-[VSITA]-[0-9]{4,}$`)

// IsValidShortCode reports whether code matches the canonical short-code
// shape for document type t.
func IsValidShortCode(t Type, code ShortCode) bool {
	if !shortCodePattern.MatchString(string(code)) {
		return false
	}
	parts := strings.Split(string(code), "-")
	return len(parts) == 3 && parts[1] == t.Letter()
}

// Validate checks a Document's own invariants: a valid type, the required
// fields per type, a phase tag that names a legal phase for that type, and
// (if set) a short code whose type letter matches the document type. It
// does not check cross-document constraints (parent/child legality under a
// flight-level configuration, short-code uniqueness) — those belong to the
// workspace layer, which has the context to check them.
func Validate(d *Document) error {
	if !d.DocumentType.Valid() {
		return fmt.Errorf("%w: %q", merr.ErrInvalidDocumentType, d.DocumentType)
	}
	if strings.TrimSpace(d.Title) == "" {
		return &merr.MissingRequiredFieldError{Field: "title", FilePath: string(d.FilePath)}
	}
	if strings.TrimSpace(string(d.ID)) == "" {
		return &merr.MissingRequiredFieldError{Field: "id", FilePath: string(d.FilePath)}
	}

	phase := d.Phase()
	if phase == "" {
		return &merr.MissingRequiredFieldError{Field: "phase tag", FilePath: string(d.FilePath)}
	}
	if !ValidPhase(d.DocumentType, phase) {
		return fmt.Errorf("%w: %q for type %s", merr.ErrInvalidPhase, phase, d.DocumentType)
	}

	if d.ShortCode != "" && !IsValidShortCode(d.DocumentType, d.ShortCode) {
		return fmt.Errorf("document: short code %q is not a valid %s code", d.ShortCode, d.DocumentType)
	}

	switch d.DocumentType {
	case TypeStrategy:
		if d.RiskLevel != "" && !d.RiskLevel.Valid() {
			return fmt.Errorf("document: invalid risk_level %q", d.RiskLevel)
		}
	case TypeInitiative:
		if d.EstimatedComplexity != "" && !d.EstimatedComplexity.Valid() {
			return fmt.Errorf("document: invalid estimated_complexity %q", d.EstimatedComplexity)
		}
	case TypeADR:
		if d.Number == 0 {
			return &merr.MissingRequiredFieldError{Field: "number", FilePath: string(d.FilePath)}
		}
	}

	return nil
}
