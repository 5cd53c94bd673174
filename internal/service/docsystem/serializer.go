package docsystem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"smartdoc/internal/domain"
	"smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/service/docsystem/converter"
	"smartdoc/internal/service/docsystem/converter/sanitizer"
)

// maxTreeDepth bounds nesting so hostile input cannot exhaust the stack
const maxTreeDepth = 64

type contentSerializer struct {
	sanitizer *sanitizer.HTMLSanitizer
	markdown  *md.Converter
}

// NewContentSerializer creates the canonical JSON serializer for document trees
func NewContentSerializer() docsysSvc.ContentSerializer {
	return &contentSerializer{
		sanitizer: sanitizer.NewHTMLSanitizer(),
		markdown:  md.NewConverter("", true, nil),
	}
}

// Serialize encodes the tree as compact JSON. encoding/json writes struct
// fields in declaration order and map keys sorted, so equal trees always
// produce identical bytes.
func (s *contentSerializer) Serialize(tree *docsystem.Node) (string, error) {
	if err := validateTree(tree); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return "", fmt.Errorf("serialize content: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (s *contentSerializer) Deserialize(serialized string) (*docsystem.Node, error) {
	dec := json.NewDecoder(strings.NewReader(serialized))

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed("content is not valid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("unexpected data after content")
	}

	// Numbers stay json.Number so integer attrs above 2^53 survive the round trip
	body := json.NewDecoder(bytes.NewReader(raw))
	body.UseNumber()
	var tree docsystem.Node
	if err := body.Decode(&tree); err != nil {
		return nil, malformed("content does not match the document schema: %v", err)
	}
	if err := validateTree(&tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (s *contentSerializer) ToDisplayMarkup(tree *docsystem.Node) string {
	markup, _ := s.sanitizer.Sanitize(converter.RenderHTML(tree))
	return markup
}

// Validate reports whether tree can be serialized, without encoding it
func (s *contentSerializer) Validate(tree *docsystem.Node) error {
	return validateTree(tree)
}

func (s *contentSerializer) FromMarkup(markup string) (*docsystem.Node, error) {
	sanitized, err := s.sanitizer.Sanitize(markup)
	if err != nil {
		return nil, malformed("sanitize markup: %v", err)
	}
	tree, err := converter.ParseHTML(sanitized)
	if err != nil {
		return nil, malformed("%v", err)
	}
	if err := validateTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Load accepts stored content in any form a document may hold: the empty
// placeholder, canonical JSON, or HTML written by older clients. Anything
// else is malformed.
func (s *contentSerializer) Load(content string) (*docsystem.Node, error) {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "" || trimmed == docsystem.EmptyContent:
		return docsystem.NewDoc(docsystem.NewParagraph("")), nil
	case strings.HasPrefix(trimmed, "<"):
		return s.FromMarkup(trimmed)
	}
	return s.Deserialize(trimmed)
}

func (s *contentSerializer) ToMarkdown(tree *docsystem.Node) (string, error) {
	markdown, err := s.markdown.ConvertString(s.ToDisplayMarkup(tree))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return markdown, nil
}

// validateTree checks the structural rules the editor relies on: a "doc"
// root, typed nodes, and text only on text leaves.
func validateTree(tree *docsystem.Node) error {
	if tree == nil {
		return malformed("content is empty")
	}
	if tree.Type != docsystem.NodeDoc {
		return malformed("root node must be %q, got %q", docsystem.NodeDoc, tree.Type)
	}
	return validateNode(tree, 0)
}

func validateNode(n *docsystem.Node, depth int) error {
	if depth > maxTreeDepth {
		return malformed("content nested deeper than %d levels", maxTreeDepth)
	}
	if n == nil {
		return malformed("content contains a null node")
	}
	if n.Type == "" {
		return malformed("node at depth %d has no type", depth)
	}
	if n.Type == docsystem.NodeText {
		if n.Text == "" {
			return malformed("text node without text")
		}
		if len(n.Content) > 0 {
			return malformed("text node with children")
		}
		for _, m := range n.Marks {
			if m.Type == "" {
				return malformed("mark without type")
			}
		}
		return nil
	}
	if n.Text != "" {
		return malformed("%s node carries text", n.Type)
	}
	if depth > 0 && n.Type == docsystem.NodeDoc {
		return malformed("nested doc node")
	}
	for _, child := range n.Content {
		if err := validateNode(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func malformed(format string, args ...interface{}) error {
	return &domain.MalformedContentError{Message: fmt.Sprintf(format, args...)}
}
