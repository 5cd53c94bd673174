package docsystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentAnalyzer_CountWords(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     int
	}{
		{"empty", "", 0},
		{"heading and paragraph", "# Title\n\nSome **bold** text", 4},
		{"lists", "- one\n- two\n1. three\n12. four", 4},
		{"code block ignored", "before\n```go\nfunc main() {}\n```\nafter", 2},
		{"rules and tables", "a\n\n---\n\n| x | y |\n|---|---|\n| 1 | 2 |", 5},
	}

	analyzer := NewContentAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analyzer.CountWords(tt.markdown))
		})
	}
}
