package converter

import (
	"fmt"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"smartdoc/internal/domain/models/docsystem"
)

// ParseHTML builds a document tree from an HTML fragment or page.
// Layout containers (div, section, span...) are flattened; loose inline
// content is wrapped in paragraphs. An empty input yields a document with
// a single empty paragraph.
func ParseHTML(markup string) (*docsystem.Node, error) {
	root, err := xhtml.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}

	doc := docsystem.NewDoc(parseBlocks(body)...)
	if len(doc.Content) == 0 {
		doc.Content = []*docsystem.Node{docsystem.NewParagraph("")}
	}
	return doc, nil
}

func findElement(n *xhtml.Node, a atom.Atom) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// parseBlocks converts the children of a block container into block nodes
func parseBlocks(parent *xhtml.Node) []*docsystem.Node {
	var blocks []*docsystem.Node
	var inline []*docsystem.Node

	flush := func() {
		if p := finishInline(docsystem.NodeParagraph, inline); p != nil {
			blocks = append(blocks, p)
		}
		inline = nil
	}

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if isBlock(c) {
			flush()
			blocks = append(blocks, parseBlock(c)...)
			continue
		}
		inline = append(inline, parseInline(c, nil)...)
	}
	flush()
	return blocks
}

func isBlock(n *xhtml.Node) bool {
	if n.Type != xhtml.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Blockquote, atom.Pre, atom.Hr,
		atom.Table, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr,
		atom.Div, atom.Section, atom.Article, atom.Main, atom.Header,
		atom.Footer, atom.Nav, atom.Aside, atom.Figure, atom.Img:
		return true
	}
	return false
}

func parseBlock(n *xhtml.Node) []*docsystem.Node {
	switch n.DataAtom {
	case atom.P:
		if p := finishInline(docsystem.NodeParagraph, parseInlineChildren(n, nil)); p != nil {
			return []*docsystem.Node{p}
		}
		return nil
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		h := finishInline(docsystem.NodeHeading, parseInlineChildren(n, nil))
		if h == nil {
			return nil
		}
		h.Attrs = map[string]interface{}{"level": float64(n.Data[1] - '0')}
		return []*docsystem.Node{h}
	case atom.Ul:
		return []*docsystem.Node{parseList(docsystem.NodeBulletList, n)}
	case atom.Ol:
		list := parseList(docsystem.NodeOrderedList, n)
		if start := attr(n, "start"); start != "" {
			var s int
			if _, err := fmt.Sscanf(start, "%d", &s); err == nil && s > 1 {
				list.Attrs = map[string]interface{}{"start": float64(s)}
			}
		}
		return []*docsystem.Node{list}
	case atom.Li:
		return []*docsystem.Node{parseListItem(n)}
	case atom.Blockquote:
		return []*docsystem.Node{{Type: docsystem.NodeBlockquote, Content: nonEmpty(parseBlocks(n))}}
	case atom.Pre:
		return []*docsystem.Node{parseCodeBlock(n)}
	case atom.Hr:
		return []*docsystem.Node{{Type: docsystem.NodeHorizontalRule}}
	case atom.Img:
		return []*docsystem.Node{parseImage(n)}
	case atom.Table:
		return []*docsystem.Node{{Type: docsystem.NodeTable, Content: parseRows(n)}}
	case atom.Thead, atom.Tbody, atom.Tfoot:
		return parseRows(n)
	case atom.Tr:
		return []*docsystem.Node{parseRow(n)}
	default:
		// Layout containers are transparent
		return parseBlocks(n)
	}
}

func parseList(listType string, n *xhtml.Node) *docsystem.Node {
	list := &docsystem.Node{Type: listType}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xhtml.ElementNode && c.DataAtom == atom.Li {
			list.Content = append(list.Content, parseListItem(c))
		}
	}
	return list
}

func parseListItem(n *xhtml.Node) *docsystem.Node {
	return &docsystem.Node{Type: docsystem.NodeListItem, Content: nonEmpty(parseBlocks(n))}
}

func parseCodeBlock(n *xhtml.Node) *docsystem.Node {
	block := &docsystem.Node{Type: docsystem.NodeCodeBlock}
	if code := findElement(n, atom.Code); code != nil {
		if lang, ok := strings.CutPrefix(attr(code, "class"), "language-"); ok && lang != "" {
			block.Attrs = map[string]interface{}{"language": lang}
		}
	}
	if text := textContent(n); text != "" {
		block.Content = []*docsystem.Node{docsystem.NewText(text)}
	}
	return block
}

func parseImage(n *xhtml.Node) *docsystem.Node {
	attrs := map[string]interface{}{"src": attr(n, "src")}
	if alt := attr(n, "alt"); alt != "" {
		attrs["alt"] = alt
	}
	return &docsystem.Node{Type: docsystem.NodeImage, Attrs: attrs}
}

func parseRows(n *xhtml.Node) []*docsystem.Node {
	var rows []*docsystem.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xhtml.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			rows = append(rows, parseRow(c))
		case atom.Thead, atom.Tbody, atom.Tfoot:
			rows = append(rows, parseRows(c)...)
		}
	}
	return rows
}

func parseRow(n *xhtml.Node) *docsystem.Node {
	row := &docsystem.Node{Type: docsystem.NodeTableRow}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xhtml.ElementNode {
			continue
		}
		cellType := ""
		switch c.DataAtom {
		case atom.Td:
			cellType = docsystem.NodeTableCell
		case atom.Th:
			cellType = docsystem.NodeTableHeader
		default:
			continue
		}
		row.Content = append(row.Content, &docsystem.Node{Type: cellType, Content: nonEmpty(parseBlocks(c))})
	}
	return row
}

// nonEmpty keeps containers schema-valid: they must hold at least one block
func nonEmpty(blocks []*docsystem.Node) []*docsystem.Node {
	if len(blocks) == 0 {
		return []*docsystem.Node{docsystem.NewParagraph("")}
	}
	return blocks
}

func parseInlineChildren(n *xhtml.Node, marks []docsystem.Mark) []*docsystem.Node {
	var out []*docsystem.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, parseInline(c, marks)...)
	}
	return out
}

func parseInline(n *xhtml.Node, marks []docsystem.Mark) []*docsystem.Node {
	switch n.Type {
	case xhtml.TextNode:
		text := collapseWhitespace(n.Data)
		if text == "" {
			return nil
		}
		return []*docsystem.Node{docsystem.NewText(text, copyMarks(marks)...)}
	case xhtml.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		return []*docsystem.Node{{Type: docsystem.NodeHardBreak}}
	case atom.Script, atom.Style:
		return nil
	case atom.Strong, atom.B:
		return parseInlineChildren(n, withMark(marks, docsystem.Mark{Type: docsystem.MarkBold}))
	case atom.Em, atom.I:
		return parseInlineChildren(n, withMark(marks, docsystem.Mark{Type: docsystem.MarkItalic}))
	case atom.U:
		return parseInlineChildren(n, withMark(marks, docsystem.Mark{Type: docsystem.MarkUnderline}))
	case atom.S, atom.Strike, atom.Del:
		return parseInlineChildren(n, withMark(marks, docsystem.Mark{Type: docsystem.MarkStrike}))
	case atom.Code:
		return parseInlineChildren(n, withMark(marks, docsystem.Mark{Type: docsystem.MarkCode}))
	case atom.A:
		link := docsystem.Mark{Type: docsystem.MarkLink, Attrs: map[string]interface{}{"href": attr(n, "href")}}
		return parseInlineChildren(n, withMark(marks, link))
	default:
		return parseInlineChildren(n, marks)
	}
}

// finishInline trims edge whitespace of an inline run and wraps it in a block.
// Returns nil when nothing visible remains.
func finishInline(blockType string, inline []*docsystem.Node) *docsystem.Node {
	for len(inline) > 0 && inline[0].Type == docsystem.NodeText {
		inline[0].Text = strings.TrimLeft(inline[0].Text, " ")
		if inline[0].Text != "" {
			break
		}
		inline = inline[1:]
	}
	for len(inline) > 0 && inline[len(inline)-1].Type == docsystem.NodeText {
		last := inline[len(inline)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		inline = inline[:len(inline)-1]
	}

	if len(inline) == 0 {
		if blockType == docsystem.NodeParagraph {
			return nil
		}
		return &docsystem.Node{Type: blockType}
	}
	return &docsystem.Node{Type: blockType, Content: inline}
}

func withMark(marks []docsystem.Mark, m docsystem.Mark) []docsystem.Mark {
	out := make([]docsystem.Mark, 0, len(marks)+1)
	out = append(out, marks...)
	return append(out, m)
}

func copyMarks(marks []docsystem.Mark) []docsystem.Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]docsystem.Mark, len(marks))
	copy(out, marks)
	return out
}

// collapseWhitespace folds whitespace runs to single spaces, keeping a
// single leading/trailing space so words across inline tags stay apart.
func collapseWhitespace(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	fields := strings.Fields(s)
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}

func textContent(n *xhtml.Node) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimRight(b.String(), "\n")
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
