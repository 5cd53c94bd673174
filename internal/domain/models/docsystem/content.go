package docsystem

// Node types understood by the editor surface. Unknown types are preserved
// through serialization but rendered as plain containers.
const (
	NodeDoc            = "doc"
	NodeParagraph      = "paragraph"
	NodeHeading        = "heading"
	NodeText           = "text"
	NodeBulletList     = "bulletList"
	NodeOrderedList    = "orderedList"
	NodeListItem       = "listItem"
	NodeBlockquote     = "blockquote"
	NodeCodeBlock      = "codeBlock"
	NodeHorizontalRule = "horizontalRule"
	NodeHardBreak      = "hardBreak"
	NodeImage          = "image"
	NodeTable          = "table"
	NodeTableRow       = "tableRow"
	NodeTableCell      = "tableCell"
	NodeTableHeader    = "tableHeader"
)

// Mark types applied to text nodes
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkCode      = "code"
	MarkLink      = "link"
)

// Node is one element of the structured document tree.
// The root node has type "doc"; leaves are text nodes.
type Node struct {
	Type    string                 `json:"type"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []*Node                `json:"content,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Marks   []Mark                 `json:"marks,omitempty"`
}

// Mark is inline formatting on a text node
type Mark struct {
	Type  string                 `json:"type"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

// NewDoc returns a root node holding the given blocks
func NewDoc(blocks ...*Node) *Node {
	return &Node{Type: NodeDoc, Content: blocks}
}

// NewParagraph returns a paragraph with a single text child (or none for "")
func NewParagraph(text string) *Node {
	p := &Node{Type: NodeParagraph}
	if text != "" {
		p.Content = []*Node{NewText(text)}
	}
	return p
}

// NewText returns a text node with optional marks
func NewText(text string, marks ...Mark) *Node {
	return &Node{Type: NodeText, Text: text, Marks: marks}
}

// Clone deep-copies the node
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Type:  n.Type,
		Text:  n.Text,
		Attrs: cloneAttrs(n.Attrs),
	}
	if n.Content != nil {
		c.Content = make([]*Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = child.Clone()
		}
	}
	if n.Marks != nil {
		c.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			c.Marks[i] = Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
		}
	}
	return c
}

// PlainText concatenates the text of all descendants, separating blocks with newlines
func (n *Node) PlainText() string {
	if n == nil {
		return ""
	}
	if n.Type == NodeText {
		return n.Text
	}
	var out []byte
	for i, child := range n.Content {
		if i > 0 && child.Type != NodeText && child.Type != NodeHardBreak {
			out = append(out, '\n')
		}
		if child.Type == NodeHardBreak {
			out = append(out, '\n')
			continue
		}
		out = append(out, child.PlainText()...)
	}
	return string(out)
}

func cloneAttrs(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneAttrs(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
