package infrastructures

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips all HTML markup from free-text fields before they are
// evaluated or persisted. Strict policy: no tags, no attributes.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean returns the input with all markup removed and surrounding
// whitespace trimmed.
func (s *Sanitizer) Clean(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(input))
}
