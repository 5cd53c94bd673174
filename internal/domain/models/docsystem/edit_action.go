package docsystem

// BlockRange addresses top-level blocks [From, To) of a document
type BlockRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// EditAction is a suggested change applied to the live document.
// Implementations: ReplaceAction, InsertAction.
type EditAction interface {
	editAction()
	// Blocks returns the nodes the action writes
	Blocks() []*Node
}

// ReplaceAction swaps a block range for new content.
// A nil Range targets the block under the cursor.
type ReplaceAction struct {
	Range   *BlockRange
	Content []*Node
}

// InsertAction inserts content before the block at Position.
// A nil Position inserts after the block under the cursor.
type InsertAction struct {
	Position *int
	Content  []*Node
}

func (ReplaceAction) editAction() {}
func (InsertAction) editAction()  {}

func (a ReplaceAction) Blocks() []*Node { return a.Content }
func (a InsertAction) Blocks() []*Node  { return a.Content }
