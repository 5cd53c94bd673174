package docsystem

import "smartdoc/internal/domain/models/docsystem"

// ContentSerializer converts the live document tree to and from its canonical
// stored form. Implementations are pure and safe for concurrent use.
type ContentSerializer interface {
	// Serialize returns canonical JSON. Output is byte-identical for an unchanged tree.
	Serialize(tree *docsystem.Node) (string, error)

	// Deserialize parses the output of Serialize.
	// Returns a MalformedContentError for anything that is not a valid tree.
	Deserialize(serialized string) (*docsystem.Node, error)

	// Validate applies the structural checks Serialize makes.
	// Returns a MalformedContentError when the tree could not be stored.
	Validate(tree *docsystem.Node) error

	// ToDisplayMarkup renders sanitized HTML. Lossy; never parsed back for storage.
	ToDisplayMarkup(tree *docsystem.Node) string

	// FromMarkup builds a tree from HTML (legacy stored content, generated output)
	FromMarkup(markup string) (*docsystem.Node, error)

	// Load accepts either serialized JSON or legacy HTML content
	Load(content string) (*docsystem.Node, error)

	// ToMarkdown renders the tree as markdown (export, word counts)
	ToMarkdown(tree *docsystem.Node) (string, error)
}
