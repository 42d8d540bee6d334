package document

import (
	"fmt"
	"strings"

	"github.com/colliery-io/metis/internal/merr"
)

// ReplaceSection replaces the content of the first "## <heading>" H2
// section in body with newText, leaving any other occurrence of the same
// heading untouched (spec §9's no-dedup rule). Returns ErrSectionNotFound
// if the heading isn't present.
func ReplaceSection(body, heading, newText string) (string, error) {
	marker := "## " + heading
	idx := strings.Index(body, marker)
	if idx == -1 {
		return "", fmt.Errorf("%w: %q", merr.ErrSectionNotFound, heading)
	}
	start := idx + len(marker)
	end := findNextH2(body[start:])
	return body[:start] + "\n\n" + strings.TrimSpace(newText) + "\n\n" + strings.TrimLeft(body[start+end:], "\n"), nil
}

// AppendSection adds a new "## <heading>" section at the end of body.
func AppendSection(body, heading, text string) string {
	body = strings.TrimRight(body, "\n")
	return body + "\n\n## " + heading + "\n\n" + strings.TrimSpace(text) + "\n"
}

// UpdateAcceptanceCriteria replaces the first Acceptance Criteria section's
// text, creating one if none exists yet. ExtraOccurrences (if any) are left
// exactly as parsed.
func UpdateAcceptanceCriteria(d *Document, newText string) {
	if d.AcceptanceCriteria == nil {
		d.ContentBody = AppendSection(d.ContentBody, "Acceptance Criteria", newText)
		d.AcceptanceCriteria = &AcceptanceCriteria{Text: strings.TrimSpace(newText)}
		return
	}
	updated, err := ReplaceSection(d.ContentBody, "Acceptance Criteria", newText)
	if err != nil {
		updated = AppendSection(d.ContentBody, "Acceptance Criteria", newText)
	}
	d.ContentBody = updated
	d.AcceptanceCriteria.Text = strings.TrimSpace(newText)
}
