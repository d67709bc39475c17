package css

import (
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// token is a single lexer token with offset of its first byte in the lexed
// text.
type token struct {
	tt   css.TokenType
	data string
	off  int
}

// tokenize splits s into CSS tokens. Lexer is lossless, concatenated token
// data is s itself, so every later stage works on slices of the result and
// never has to look at the raw text again.
func tokenize(s string) ([]token, error) {
	var (
		tokens []token
		off    int
	)
	l := css.NewLexer(parse.NewInputString(s))
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return tokens, nil
		}
		tokens = append(tokens, token{tt: tt, data: string(data), off: off})
		off += len(data)
	}
}

// text glues tokens back together.
func text(tokens []token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.data)
	}
	return sb.String()
}

// trimSpace cuts whitespace tokens from both ends.
func trimSpace(tokens []token) []token {
	for len(tokens) > 0 && tokens[0].tt == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].tt == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// nesting returns how token changes parentheses and brackets depth.
func nesting(tt css.TokenType) int {
	switch tt {
	case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
		return 1
	case css.RightParenthesisToken, css.RightBracketToken:
		return -1
	}
	return 0
}

// indexTopLevel returns index of the first token of type sep which is not
// inside parentheses or brackets, -1 if there is none.
func indexTopLevel(tokens []token, sep css.TokenType) int {
	depth := 0
	for i, t := range tokens {
		if t.tt == sep && depth == 0 {
			return i
		}
		depth = max(depth+nesting(t.tt), 0)
	}
	return -1
}

// cutTopLevel slices tokens around the first top-level sep.
func cutTopLevel(tokens []token, sep css.TokenType) (before, after []token, found bool) {
	if i := indexTopLevel(tokens, sep); i >= 0 {
		return tokens[:i], tokens[i+1:], true
	}
	return tokens, nil, false
}

// splitTopLevel slices tokens into all runs separated by top-level sep.
func splitTopLevel(tokens []token, sep css.TokenType) [][]token {
	var parts [][]token
	for {
		before, after, found := cutTopLevel(tokens, sep)
		parts = append(parts, before)
		if !found {
			return parts
		}
		tokens = after
	}
}

// matchBrace returns index of '}' closing '{' at tokens[open], -1 if block
// is not terminated.
func matchBrace(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeSelector collapses whitespace into single space and removes it
// around commas and at both ends.
func normalizeSelector(tokens []token) string {
	tokens = trimSpace(tokens)
	var sb strings.Builder
	for i, t := range tokens {
		if t.tt != css.WhitespaceToken {
			sb.WriteString(t.data)
			continue
		}
		prev, next := tokens[i-1].tt, tokens[i+1].tt
		if prev == css.WhitespaceToken || prev == css.CommaToken || next == css.CommaToken {
			continue
		}
		sb.WriteByte(' ')
	}
	return sb.String()
}

// joinLines drops blank lines and joins the rest into a single line buffer.
// Lines are joined with a single space so tokens on adjacent lines never
// fuse.
func joinLines(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for line := range strings.SplitSeq(source, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(line)
	}
	return sb.String()
}
