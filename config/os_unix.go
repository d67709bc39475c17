//go:build !windows

package config

import (
	"os"
	"strings"
	"unicode"

	"golang.org/x/term"
)

// CleanFileName removes characters not allowed in file names, output names of minified
// stylesheets are built from user controlled templates.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		switch {
		case sym == os.PathSeparator, sym == os.PathListSeparator:
			return -1
		case unicode.IsControl(sym):
			return -1
		}
		return sym
	}, in)
	// leading dots would make result hidden or refer to parent directory
	out = strings.TrimLeft(out, ".")
	if len(out) == 0 {
		out = badFileName
	}
	return out
}

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	if noColorRequested() {
		return false
	}
	return term.IsTerminal(int(stream.Fd()))
}
