package converter

import (
	"context"
	"fmt"

	"smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/service/docsystem/converter/sanitizer"
)

// htmlConverter imports HTML files in two stages:
// 1. Sanitize HTML to remove dangerous elements (XSS prevention)
// 2. Parse the sanitized HTML into a document tree
type htmlConverter struct {
	sanitizer *sanitizer.HTMLSanitizer
}

// NewHTMLConverter creates a new HTML converter.
func NewHTMLConverter() docsysSvc.ContentConverter {
	return &htmlConverter{
		sanitizer: sanitizer.NewHTMLSanitizer(),
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (*docsystem.Node, error) {
	sanitized, err := c.sanitizer.Sanitize(string(input))
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize HTML: %w", err)
	}

	tree, err := ParseHTML(sanitized)
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML: %w", err)
	}
	return tree, nil
}

// SupportedExtensions returns HTML file extensions.
func (c *htmlConverter) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

// Name returns the converter name for logging.
func (c *htmlConverter) Name() string {
	return "html"
}
