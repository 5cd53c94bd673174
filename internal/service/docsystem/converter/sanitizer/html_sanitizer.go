package sanitizer

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer filters markup on the way into a document tree (imports,
// rendered markdown, legacy content) and on the way out as display markup.
// Safe for concurrent use.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer creates a sanitizer with the UGC (User Generated Content)
// policy: common formatting, headings, lists, tables and links survive;
// scripts, event handlers and javascript: URLs are stripped. The class
// attribute is kept on code so fenced block languages survive.
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code")

	return &HTMLSanitizer{policy: policy}
}

// Sanitize removes dangerous HTML while preserving safe content.
func (s *HTMLSanitizer) Sanitize(html string) (string, error) {
	return s.policy.Sanitize(html), nil
}
