package docsystem

import (
	"context"

	"smartdoc/internal/domain/models/docsystem"
)

// ContentConverter converts imported file bytes into a document tree.
// Each converter handles a specific file type (html, markdown, txt).
//
// Implementations should be stateless and thread-safe.
type ContentConverter interface {
	// Convert transforms input content into a tree rooted at a "doc" node.
	Convert(ctx context.Context, input []byte) (*docsystem.Node, error)

	// SupportedExtensions returns file extensions this converter handles.
	// Extensions should include the leading dot (e.g., [".html", ".htm"]).
	SupportedExtensions() []string

	// Name returns a human-readable converter name for logging/debugging.
	Name() string
}

// ConverterRegistry resolves a converter from a filename
type ConverterRegistry interface {
	Register(converter ContentConverter)
	ForFile(filename string) (ContentConverter, error)
	IsSupported(filename string) bool
	SupportedExtensions() []string
}
