// Package block partitions raw answer text into an ordered sequence of
// typed content blocks. Segmentation is a pure function over a text
// snapshot and is re-run wholesale on every finalize; it never fails,
// degrading unclassifiable input to plain paragraphs.
package block

// Kind identifies the structural type of a content block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindBulletList
	KindOrderedList
	KindCode
	KindTable
	KindDiagram
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindBulletList:
		return "bullet-list"
	case KindOrderedList:
		return "ordered-list"
	case KindCode:
		return "code"
	case KindTable:
		return "table"
	case KindDiagram:
		return "diagram"
	}
	return "unknown"
}

// Table holds the structured content of a table block.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Block is one structurally distinct unit of the finalized document.
// Text kinds carry safe inline-formatted markup in Content; code and
// diagram kinds carry raw source in Source plus an optional language tag.
type Block struct {
	Kind    Kind
	Level   int      // heading level, 1-6
	Content string   // paragraph/heading markup
	Items   []string // list items, formatted
	Source  string   // raw source for code/diagram
	Lang    string   // language tag for code/diagram
	Table   *Table
}
