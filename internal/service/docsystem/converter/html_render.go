package converter

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"smartdoc/internal/domain/models/docsystem"
)

// RenderHTML renders a document tree as HTML. Output is not sanitized;
// callers displaying it should pass it through the HTML sanitizer.
func RenderHTML(tree *docsystem.Node) string {
	if tree == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, tree)
	return b.String()
}

func renderNode(b *strings.Builder, node *docsystem.Node) {
	switch node.Type {
	case docsystem.NodeDoc:
		renderChildren(b, node)
	case docsystem.NodeText:
		renderText(b, node)
	case docsystem.NodeParagraph:
		wrap(b, "p", node)
	case docsystem.NodeHeading:
		wrap(b, fmt.Sprintf("h%d", headingLevel(node)), node)
	case docsystem.NodeBulletList:
		wrap(b, "ul", node)
	case docsystem.NodeOrderedList:
		if start := intAttr(node, "start"); start > 1 {
			fmt.Fprintf(b, `<ol start="%d">`, start)
			renderChildren(b, node)
			b.WriteString("</ol>")
			return
		}
		wrap(b, "ol", node)
	case docsystem.NodeListItem:
		wrap(b, "li", node)
	case docsystem.NodeBlockquote:
		wrap(b, "blockquote", node)
	case docsystem.NodeCodeBlock:
		b.WriteString("<pre><code")
		if lang := stringAttr(node, "language"); lang != "" {
			fmt.Fprintf(b, ` class="language-%s"`, html.EscapeString(lang))
		}
		b.WriteString(">")
		b.WriteString(html.EscapeString(node.PlainText()))
		b.WriteString("</code></pre>")
	case docsystem.NodeHorizontalRule:
		b.WriteString("<hr>")
	case docsystem.NodeHardBreak:
		b.WriteString("<br>")
	case docsystem.NodeImage:
		fmt.Fprintf(b, `<img src="%s" alt="%s">`,
			html.EscapeString(stringAttr(node, "src")),
			html.EscapeString(stringAttr(node, "alt")))
	case docsystem.NodeTable:
		wrap(b, "table", node)
	case docsystem.NodeTableRow:
		wrap(b, "tr", node)
	case docsystem.NodeTableCell:
		wrap(b, "td", node)
	case docsystem.NodeTableHeader:
		wrap(b, "th", node)
	default:
		// Unknown node types render their children only
		renderChildren(b, node)
	}
}

func wrap(b *strings.Builder, tag string, node *docsystem.Node) {
	b.WriteString("<" + tag + ">")
	renderChildren(b, node)
	b.WriteString("</" + tag + ">")
}

func renderChildren(b *strings.Builder, node *docsystem.Node) {
	for _, child := range node.Content {
		renderNode(b, child)
	}
}

func renderText(b *strings.Builder, node *docsystem.Node) {
	var closers []string
	for _, mark := range node.Marks {
		open, close := markTags(mark)
		if open == "" {
			continue
		}
		b.WriteString(open)
		closers = append(closers, close)
	}
	b.WriteString(html.EscapeString(node.Text))
	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteString(closers[i])
	}
}

func markTags(mark docsystem.Mark) (string, string) {
	switch mark.Type {
	case docsystem.MarkBold:
		return "<strong>", "</strong>"
	case docsystem.MarkItalic:
		return "<em>", "</em>"
	case docsystem.MarkUnderline:
		return "<u>", "</u>"
	case docsystem.MarkStrike:
		return "<s>", "</s>"
	case docsystem.MarkCode:
		return "<code>", "</code>"
	case docsystem.MarkLink:
		href, _ := mark.Attrs["href"].(string)
		return fmt.Sprintf(`<a href="%s">`, html.EscapeString(href)), "</a>"
	}
	return "", ""
}

func headingLevel(node *docsystem.Node) int {
	level := intAttr(node, "level")
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func intAttr(node *docsystem.Node, key string) int {
	switch v := node.Attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func stringAttr(node *docsystem.Node, key string) string {
	s, _ := node.Attrs[key].(string)
	return s
}
