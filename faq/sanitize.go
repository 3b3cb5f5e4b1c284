package faq

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict strips every tag and attribute. Extracted text passes through
// it before storage so stray markup from a source page can never reach
// a client.
var strict = bluemonday.StrictPolicy()

// sanitizeText reduces extracted content to plain text: markup removed,
// entities resolved, surrounding whitespace trimmed.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
