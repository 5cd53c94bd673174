package docsystem

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdoc/internal/domain"
	"smartdoc/internal/domain/models/docsystem"
)

func sampleTree() *docsystem.Node {
	return docsystem.NewDoc(
		&docsystem.Node{
			Type:    docsystem.NodeHeading,
			Attrs:   map[string]interface{}{"level": json.Number("1"), "id": "intro"},
			Content: []*docsystem.Node{docsystem.NewText("Quarterly Report")},
		},
		&docsystem.Node{
			Type: docsystem.NodeParagraph,
			Content: []*docsystem.Node{
				docsystem.NewText("Revenue grew "),
				docsystem.NewText("12%", docsystem.Mark{Type: docsystem.MarkBold}),
				docsystem.NewText(" <year over year>"),
			},
		},
		&docsystem.Node{
			Type: docsystem.NodeBulletList,
			Content: []*docsystem.Node{
				{Type: docsystem.NodeListItem, Content: []*docsystem.Node{docsystem.NewParagraph("North")}},
				{Type: docsystem.NodeListItem, Content: []*docsystem.Node{docsystem.NewParagraph("South")}},
			},
		},
	)
}

// ============================================================================
// Serialize / Deserialize
// ============================================================================

func TestSerializer_RoundTrip(t *testing.T) {
	s := NewContentSerializer()

	trees := map[string]*docsystem.Node{
		"sample":          sampleTree(),
		"empty paragraph": docsystem.NewDoc(docsystem.NewParagraph("")),
		"empty doc":       docsystem.NewDoc(),
		"nested attrs": docsystem.NewDoc(&docsystem.Node{
			Type:  "callout",
			Attrs: map[string]interface{}{"meta": map[string]interface{}{"tone": "info", "tags": []interface{}{"a", "b"}}},
		}),
		"large integer": docsystem.NewDoc(&docsystem.Node{
			Type:  "callout",
			Attrs: map[string]interface{}{"id": json.Number("9007199254740993")},
		}),
	}

	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			serialized, err := s.Serialize(tree)
			require.NoError(t, err)

			back, err := s.Deserialize(serialized)
			require.NoError(t, err)
			assert.Equal(t, tree, back)

			again, err := s.Serialize(back)
			require.NoError(t, err)
			assert.Equal(t, serialized, again)
		})
	}
}

func TestSerializer_LargeIntegerKeepsPrecision(t *testing.T) {
	s := NewContentSerializer()
	input := `{"type":"doc","content":[{"type":"callout","attrs":{"id":9007199254740993}}]}`

	tree, err := s.Deserialize(input)
	require.NoError(t, err)
	out, err := s.Serialize(tree)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestSerializer_Deterministic(t *testing.T) {
	s := NewContentSerializer()
	tree := sampleTree()

	first, err := s.Serialize(tree)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		next, err := s.Serialize(tree)
		require.NoError(t, err)
		require.Equal(t, first, next)
	}

	// Map keys are emitted sorted regardless of insertion order
	assert.Contains(t, first, `"attrs":{"id":"intro","level":1}`)
	// HTML characters stay readable
	assert.Contains(t, first, "<year over year>")
}

func TestSerializer_DeserializeMalformed(t *testing.T) {
	s := NewContentSerializer()

	tests := []struct {
		name  string
		input string
	}{
		{"not json", "definitely not json"},
		{"empty", ""},
		{"empty object", "{}"},
		{"array", `[{"type":"doc"}]`},
		{"wrong root", `{"type":"paragraph"}`},
		{"untyped child", `{"type":"doc","content":[{"text":"x"}]}`},
		{"text with children", `{"type":"doc","content":[{"type":"text","text":"a","content":[{"type":"text","text":"b"}]}]}`},
		{"empty text", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text"}]}]}`},
		{"null child", `{"type":"doc","content":[null]}`},
		{"trailing data", `{"type":"doc"} {"type":"doc"}`},
		{"wrong field type", `{"type":"doc","content":"nope"}`},
		{"nested doc", `{"type":"doc","content":[{"type":"doc"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := s.Deserialize(tt.input)
			require.Error(t, err)
			assert.Nil(t, tree)
			assert.True(t, errors.Is(err, domain.ErrMalformedContent), "got %v", err)

			var mce *domain.MalformedContentError
			assert.True(t, errors.As(err, &mce))
		})
	}
}

func TestSerializer_DeserializeTooDeep(t *testing.T) {
	s := NewContentSerializer()
	input := `{"type":"doc","content":[` + strings.Repeat(`{"type":"blockquote","content":[`, maxTreeDepth+1) +
		`{"type":"paragraph"}` + strings.Repeat(`]}`, maxTreeDepth+1) + `]}`

	_, err := s.Deserialize(input)
	assert.ErrorIs(t, err, domain.ErrMalformedContent)
}

func TestSerializer_FromMarkupTooDeep(t *testing.T) {
	s := NewContentSerializer()
	markup := strings.Repeat("<blockquote>", 80) + "<p>deep</p>" + strings.Repeat("</blockquote>", 80)

	tree, err := s.FromMarkup(markup)
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, domain.ErrMalformedContent)

	_, err = s.Load(markup)
	assert.ErrorIs(t, err, domain.ErrMalformedContent)
}

func TestSerializer_Validate(t *testing.T) {
	s := NewContentSerializer()

	require.NoError(t, s.Validate(sampleTree()))

	emptyText := docsystem.NewDoc(&docsystem.Node{
		Type:    docsystem.NodeParagraph,
		Content: []*docsystem.Node{{Type: docsystem.NodeText}},
	})
	assert.ErrorIs(t, s.Validate(emptyText), domain.ErrMalformedContent)
}

func TestSerializer_SerializeRejectsInvalidTree(t *testing.T) {
	s := NewContentSerializer()

	_, err := s.Serialize(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedContent)

	_, err = s.Serialize(docsystem.NewParagraph("loose"))
	assert.ErrorIs(t, err, domain.ErrMalformedContent)
}

// ============================================================================
// Display markup / legacy content
// ============================================================================

func TestSerializer_ToDisplayMarkup(t *testing.T) {
	s := NewContentSerializer()

	markup := s.ToDisplayMarkup(sampleTree())
	assert.Equal(t,
		"<h1>Quarterly Report</h1><p>Revenue grew <strong>12%</strong> &lt;year over year&gt;</p><ul><li><p>North</p></li><li><p>South</p></li></ul>",
		markup)
}

func TestSerializer_ToDisplayMarkup_Sanitizes(t *testing.T) {
	s := NewContentSerializer()
	tree := docsystem.NewDoc(&docsystem.Node{
		Type: docsystem.NodeParagraph,
		Content: []*docsystem.Node{
			docsystem.NewText("click", docsystem.Mark{Type: docsystem.MarkLink, Attrs: map[string]interface{}{"href": "javascript:alert(1)"}}),
		},
	})

	markup := s.ToDisplayMarkup(tree)
	assert.NotContains(t, markup, "javascript:")
	assert.Contains(t, markup, "click")
}

func TestSerializer_Load(t *testing.T) {
	s := NewContentSerializer()
	serialized, err := s.Serialize(sampleTree())
	require.NoError(t, err)

	t.Run("canonical json", func(t *testing.T) {
		tree, err := s.Load(serialized)
		require.NoError(t, err)
		assert.Equal(t, sampleTree(), tree)
	})

	t.Run("legacy html", func(t *testing.T) {
		tree, err := s.Load("<p>Hello</p>")
		require.NoError(t, err)
		assert.Equal(t, "<p>Hello</p>", s.ToDisplayMarkup(tree))
	})

	t.Run("placeholder", func(t *testing.T) {
		for _, content := range []string{"", "{}", "  {} "} {
			tree, err := s.Load(content)
			require.NoError(t, err)
			assert.Equal(t, docsystem.NewDoc(docsystem.NewParagraph("")), tree)
		}
	})

	t.Run("corrupt json", func(t *testing.T) {
		_, err := s.Load(`{"type":"doc","content":[`)
		assert.ErrorIs(t, err, domain.ErrMalformedContent)
	})

	t.Run("neither json nor markup", func(t *testing.T) {
		_, err := s.Load("%%garbage%%")
		assert.ErrorIs(t, err, domain.ErrMalformedContent)
	})
}

func TestSerializer_ToMarkdown(t *testing.T) {
	s := NewContentSerializer()

	markdown, err := s.ToMarkdown(sampleTree())
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Quarterly Report")
	assert.Contains(t, markdown, "**12%**")
	assert.Contains(t, markdown, "North")
}
