// Package debug has helpers producing human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

// TreeWriter accumulates indented text representation of a tree, one node
// per line. Values are quoted so whitespace and control characters are
// visible.
type TreeWriter struct {
	w     strings.Builder
	nodes int
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

// Nodes returns number of lines written so far.
func (tw *TreeWriter) Nodes() int {
	return tw.nodes
}

func (tw *TreeWriter) prefix(depth int) {
	tw.nodes++
	for range depth {
		tw.w.WriteString(indent)
	}
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.prefix(depth)
	fmt.Fprintf(&tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.prefix(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// List writes label with number of values and then every value one level
// deeper.
func (tw *TreeWriter) List(depth int, label string, values []string) {
	tw.Line(depth, "%s: [%d]", label, len(values))
	for i, v := range values {
		tw.TextBlock(depth+1, strconv.Itoa(i), v)
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
