package css

import (
	"slices"
	"strings"
)

// SortKey returns the comparison key for property name. Leading hack
// character (anything below 'A' like '*' or '-', and '_') is ignored, so
// "*display" sorts right next to "display".
// Unlike classic CSSMin, which skips only characters below 'A', the IE6
// "_property" hack is skipped too, so order of such properties differs from
// CSSMin output.
func SortKey(property string) string {
	if property != "" && (property[0] < 'A' || property[0] == '_') {
		return property[1:]
	}
	return property
}

// sortDeclarations orders declarations by SortKey keeping relative order of
// equal keys.
func sortDeclarations(decls []Declaration) {
	slices.SortStableFunc(decls, func(a, b Declaration) int {
		return strings.Compare(SortKey(a.Property), SortKey(b.Property))
	})
}
