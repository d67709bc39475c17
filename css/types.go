package css

import (
	"io"
	"strings"

	"go.uber.org/multierr"

	"cssmin/utils/debug"
)

// ValuePart is a single comma separated fragment of a declaration value
// after simplification.
type ValuePart string

// Declaration is a single property:value pair inside a block.
type Declaration struct {
	Property string      // trimmed, lower-cased, hack prefix preserved
	Values   []ValuePart // one per top-level comma separated fragment
}

// String returns minified representation of the declaration without
// terminating semicolon.
func (d Declaration) String() string {
	var sb strings.Builder
	sb.WriteString(d.Property)
	sb.WriteByte(':')
	for i, v := range d.Values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(v))
	}
	return sb.String()
}

// Block is a selector (or at-rule prelude) with its brace delimited body.
type Block struct {
	Selector     string        // normalized selector text
	Declarations []Declaration // sorted by SortKey
	Items        []Item        // nested blocks, statements and comments in source order
}

// Item is a single unit of a stylesheet or of a block body.
// Exactly one of Block, AtRule or Comment is non-nil.
type Item struct {
	Block   *Block  // selector with body
	AtRule  *string // at-rule statement without body, e.g. "@import url(a.css)"
	Comment *string // preserved special comment, verbatim
}

// Stylesheet is the result of parsing a single CSS source.
type Stylesheet struct {
	Items    []Item  // top-level items in source order
	Warnings []error // non-fatal problems, every unit mentioned here was dropped
	Newline  string  // terminator written after the stylesheet
}

// Err returns all accumulated warnings combined into a single error or nil.
func (s *Stylesheet) Err() error {
	return multierr.Combine(s.Warnings...)
}

// Blocks returns all top-level blocks in source order.
func (s *Stylesheet) Blocks() []*Block {
	var blocks []*Block
	for _, item := range s.Items {
		if item.Block != nil {
			blocks = append(blocks, item.Block)
		}
	}
	return blocks
}

// WriteTo writes minified stylesheet to w, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	writeItems(&sb, s.Items)
	sb.WriteString(s.Newline)
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// String returns minified CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// String returns minified representation of the block.
func (b *Block) String() string {
	var sb strings.Builder
	writeBlock(&sb, b)
	return sb.String()
}

func writeItems(sb *strings.Builder, items []Item) {
	for _, item := range items {
		switch {
		case item.Block != nil:
			writeBlock(sb, item.Block)
		case item.AtRule != nil:
			sb.WriteString(*item.AtRule)
			sb.WriteByte(';')
		case item.Comment != nil:
			sb.WriteString(*item.Comment)
		}
	}
}

func writeBlock(sb *strings.Builder, b *Block) {
	sb.WriteString(b.Selector)
	sb.WriteByte('{')
	for i, d := range b.Declarations {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(d.String())
	}
	if len(b.Declarations) > 0 && len(b.Items) > 0 {
		sb.WriteByte(';')
	}
	writeItems(sb, b.Items)
	sb.WriteByte('}')
}

// Dump returns human readable tree of the parsed stylesheet for debugging.
func (s *Stylesheet) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "stylesheet: %d items, %d blocks, %d warnings", len(s.Items), len(s.Blocks()), len(s.Warnings))
	dumpItems(tw, 1, s.Items)
	for _, w := range s.Warnings {
		tw.TextBlock(1, "warning", w.Error())
	}
	tw.Line(0, "total: %d nodes", tw.Nodes())
	return tw.String()
}

func dumpItems(tw *debug.TreeWriter, depth int, items []Item) {
	for _, item := range items {
		switch {
		case item.Block != nil:
			tw.TextBlock(depth, "block", item.Block.Selector)
			for _, d := range item.Block.Declarations {
				tw.TextBlock(depth+1, "declaration", d.String())
				if len(d.Values) > 1 {
					values := make([]string, 0, len(d.Values))
					for _, v := range d.Values {
						values = append(values, string(v))
					}
					tw.List(depth+2, "values", values)
				}
			}
			dumpItems(tw, depth+1, item.Block.Items)
		case item.AtRule != nil:
			tw.TextBlock(depth, "at-rule", *item.AtRule)
		case item.Comment != nil:
			tw.TextBlock(depth, "comment", *item.Comment)
		}
	}
}
