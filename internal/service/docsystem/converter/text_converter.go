package converter

import (
	"context"
	"strings"

	"smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
)

// textConverter turns plain text into paragraphs: blank lines separate
// paragraphs, single newlines become hard breaks.
type textConverter struct{}

// NewTextConverter creates a new text converter.
func NewTextConverter() docsysSvc.ContentConverter {
	return &textConverter{}
}

func (c *textConverter) Convert(ctx context.Context, input []byte) (*docsystem.Node, error) {
	text := strings.ReplaceAll(string(input), "\r\n", "\n")

	doc := docsystem.NewDoc()
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.Trim(chunk, "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		p := &docsystem.Node{Type: docsystem.NodeParagraph}
		for i, line := range strings.Split(chunk, "\n") {
			if i > 0 {
				p.Content = append(p.Content, &docsystem.Node{Type: docsystem.NodeHardBreak})
			}
			if line != "" {
				p.Content = append(p.Content, docsystem.NewText(line))
			}
		}
		doc.Content = append(doc.Content, p)
	}

	if len(doc.Content) == 0 {
		doc.Content = []*docsystem.Node{docsystem.NewParagraph("")}
	}
	return doc, nil
}

// SupportedExtensions returns text file extensions.
func (c *textConverter) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// Name returns the converter name for logging.
func (c *textConverter) Name() string {
	return "plaintext"
}
