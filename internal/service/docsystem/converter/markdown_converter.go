package converter

import (
	"context"
	"fmt"

	"gitlab.com/golang-commonmark/markdown"

	"smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/service/docsystem/converter/sanitizer"
)

// markdownConverter renders markdown to HTML (CommonMark) and parses the
// result into a document tree. Raw HTML inside markdown is sanitized and
// YAML frontmatter is dropped.
type markdownConverter struct {
	md        *markdown.Markdown
	sanitizer *sanitizer.HTMLSanitizer
}

// NewMarkdownConverter creates a new markdown converter.
func NewMarkdownConverter() docsysSvc.ContentConverter {
	return &markdownConverter{
		md:        markdown.New(markdown.HTML(true), markdown.Tables(true), markdown.Linkify(false)),
		sanitizer: sanitizer.NewHTMLSanitizer(),
	}
}

func (c *markdownConverter) Convert(ctx context.Context, input []byte) (*docsystem.Node, error) {
	_, body := splitFrontmatter(input)
	rendered := c.md.RenderToString(body)

	sanitized, err := c.sanitizer.Sanitize(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize rendered markdown: %w", err)
	}
	return ParseHTML(sanitized)
}

// SupportedExtensions returns markdown file extensions.
func (c *markdownConverter) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Name returns the converter name for logging.
func (c *markdownConverter) Name() string {
	return "markdown"
}
