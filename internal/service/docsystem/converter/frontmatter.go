package converter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// splitFrontmatter separates a leading YAML frontmatter block from markdown.
// Input without a well-formed block is returned unchanged with nil metadata.
//
// Expected format:
//
//	---
//	title: Quarterly Review
//	---
//	# Markdown content here
func splitFrontmatter(input []byte) (map[string]interface{}, []byte) {
	if !bytes.HasPrefix(input, []byte("---\n")) && !bytes.HasPrefix(input, []byte("---\r\n")) {
		return nil, input
	}

	lines := bytes.Split(input, []byte("\n"))
	closing := 0
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			closing = i
			break
		}
	}
	if closing == 0 {
		return nil, input
	}

	var metadata map[string]interface{}
	if err := yaml.Unmarshal(bytes.Join(lines[1:closing], []byte("\n")), &metadata); err != nil {
		// Not YAML after all; a leading thematic break is valid markdown
		return nil, input
	}

	return metadata, bytes.Join(lines[closing+1:], []byte("\n"))
}
