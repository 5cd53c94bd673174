package docsystem

import (
	"strings"
	"unicode"

	"smartdoc/internal/domain/services"
)

type contentAnalyzer struct{}

// NewContentAnalyzer returns the markdown word counter
func NewContentAnalyzer() services.ContentAnalyzer {
	return contentAnalyzer{}
}

// CountWords counts the words in markdown text, ignoring syntax and code blocks
func (contentAnalyzer) CountWords(markdown string) int {
	return len(strings.FieldsFunc(stripMarkdown(markdown), unicode.IsSpace))
}

// stripMarkdown removes markdown syntax, leaving space-separated prose
func stripMarkdown(markdown string) string {
	text := removeCodeBlocks(markdown)

	for _, marker := range []string{"`", "**", "__", "~~", "*", "#", ">"} {
		text = strings.ReplaceAll(text, marker, "")
	}

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case isRuleLine(line):
			continue
		case strings.HasPrefix(line, "- "):
			line = strings.TrimPrefix(line, "- ")
		case strings.HasPrefix(line, "+ "):
			line = strings.TrimPrefix(line, "+ ")
		}
		// Numbered list markers ("1. ", "12. ")
		if i := strings.Index(line, ". "); i > 0 && isDigits(line[:i]) {
			line = line[i+2:]
		}
		// Table pipes
		line = strings.ReplaceAll(line, "|", " ")
		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, " ")
}

// removeCodeBlocks removes ```...``` code blocks from text
func removeCodeBlocks(text string) string {
	for {
		start := strings.Index(text, "```")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start+3:], "```")
		if end == -1 {
			return text
		}
		text = text[:start] + text[start+end+6:]
	}
}

// isRuleLine matches horizontal rules and table separator rows
func isRuleLine(line string) bool {
	return strings.Contains(line, "---") && strings.Trim(line, "-|: ") == ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
