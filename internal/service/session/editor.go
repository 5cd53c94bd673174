package session

import (
	"fmt"
	"sync"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
)

// Editor is the live document a session edits. Tree returns a copy; SetTree
// replaces the document wholesale.
type Editor interface {
	Tree() *models.Node
	SetTree(tree *models.Node)
	Apply(action models.EditAction) error
}

// LiveEditor is the server-side editor model: a tree of top-level blocks and
// a cursor pointing at one of them.
type LiveEditor struct {
	mu       sync.Mutex
	tree     *models.Node
	cursor   int
	validate func(*models.Node) error
}

// NewLiveEditor returns an editor holding a single empty paragraph
func NewLiveEditor() *LiveEditor {
	return &LiveEditor{tree: emptyDoc()}
}

// WithValidation makes Apply check the edited document with validate before
// committing it. A rejected edit leaves the tree and cursor untouched.
func (e *LiveEditor) WithValidation(validate func(*models.Node) error) *LiveEditor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validate = validate
	return e
}

func (e *LiveEditor) Tree() *models.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.Clone()
}

func (e *LiveEditor) SetTree(tree *models.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tree == nil || len(tree.Content) == 0 {
		e.tree = emptyDoc()
	} else {
		e.tree = tree.Clone()
	}
	e.cursor = clamp(e.cursor, 0, len(e.tree.Content)-1)
}

// Cursor returns the index of the block under the cursor
func (e *LiveEditor) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// SetCursor moves the cursor, clamped to the document
func (e *LiveEditor) SetCursor(block int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = clamp(block, 0, len(e.tree.Content)-1)
}

// Apply performs a suggested edit. A replace without a range targets the
// cursor block; an insert without a position goes after it. The cursor ends
// on the last inserted block.
func (e *LiveEditor) Apply(action models.EditAction) error {
	switch a := action.(type) {
	case *models.ReplaceAction:
		if a != nil {
			action = *a
		}
	case *models.InsertAction:
		if a != nil {
			action = *a
		}
	}
	if action == nil || isNilPointer(action) {
		return &domain.ValidationError{Message: "edit action is required"}
	}
	blocks := action.Blocks()
	if len(blocks) == 0 {
		return &domain.ValidationError{Message: "edit action has no content"}
	}
	for _, b := range blocks {
		if b == nil || b.Type == "" || b.Type == models.NodeDoc || b.Type == models.NodeText {
			return &domain.ValidationError{Message: "edit action content must be block nodes"}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.tree.Content)
	var content []*models.Node
	var cursor int
	switch a := action.(type) {
	case models.ReplaceAction:
		from, to := e.cursor, e.cursor+1
		if a.Range != nil {
			from, to = a.Range.From, a.Range.To
		}
		if from < 0 || to > n || from >= to {
			return &domain.ValidationError{Message: fmt.Sprintf("range [%d, %d) is outside the document", from, to)}
		}
		content = e.splice(from, to, blocks)
		cursor = from + len(blocks) - 1

	case models.InsertAction:
		pos := e.cursor + 1
		if a.Position != nil {
			pos = *a.Position
		}
		if pos < 0 || pos > n {
			return &domain.ValidationError{Message: fmt.Sprintf("position %d is outside the document", pos)}
		}
		content = e.splice(pos, pos, blocks)
		cursor = pos + len(blocks) - 1

	default:
		return &domain.ValidationError{Message: fmt.Sprintf("unsupported edit action %T", action)}
	}

	if e.validate != nil {
		candidate := &models.Node{Type: e.tree.Type, Attrs: e.tree.Attrs, Content: content}
		if err := e.validate(candidate); err != nil {
			return &domain.ValidationError{Message: "edit action content is invalid: " + err.Error()}
		}
	}
	e.tree.Content = content
	e.cursor = cursor
	return nil
}

// splice returns the top-level blocks with [from, to) replaced by copies of blocks
func (e *LiveEditor) splice(from, to int, blocks []*models.Node) []*models.Node {
	out := make([]*models.Node, 0, len(e.tree.Content)-(to-from)+len(blocks))
	out = append(out, e.tree.Content[:from]...)
	for _, b := range blocks {
		out = append(out, b.Clone())
	}
	return append(out, e.tree.Content[to:]...)
}

func isNilPointer(action models.EditAction) bool {
	switch a := action.(type) {
	case *models.ReplaceAction:
		return a == nil
	case *models.InsertAction:
		return a == nil
	}
	return false
}

func emptyDoc() *models.Node {
	return models.NewDoc(models.NewParagraph(""))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
