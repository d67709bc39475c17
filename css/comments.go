package css

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// isSpecialComment reports whether comment has to survive minification:
// "/**...*/" and "/*!...*/" (licenses, hacks like "/**/").
func isSpecialComment(comment string) bool {
	return len(comment) > 2 && (comment[2] == '*' || comment[2] == '!')
}

// isTerminated reports whether lexer found closing marker of the comment.
// Lexer always returns comment token, unterminated one runs to the end of
// input.
func isTerminated(comment string) bool {
	return len(comment) >= 4 && strings.HasSuffix(comment, "*/")
}

// endsWord and startsWord report tokens which would fuse into one when
// written next to each other.
func endsWord(tt css.TokenType) bool {
	switch tt {
	case css.IdentToken, css.NumberToken, css.PercentageToken, css.DimensionToken,
		css.HashToken, css.CustomPropertyNameToken:
		return true
	}
	return false
}

func startsWord(tt css.TokenType) bool {
	switch tt {
	case css.IdentToken, css.NumberToken, css.PercentageToken, css.DimensionToken,
		css.FunctionToken, css.URLToken, css.BadURLToken, css.CustomPropertyNameToken:
		return true
	}
	return false
}

// stripComments returns tokens with all comments removed. When keepSpecial
// is set special comments are left untouched. Special comment without
// terminator swallows the rest of the input and is handled as any other
// special comment, only ordinary comment without terminator is fatal.
func stripComments(tokens []token, keepSpecial bool) ([]token, error) {
	out := make([]token, 0, len(tokens))
	for i, t := range tokens {
		if t.tt != css.CommentToken {
			out = append(out, t)
			continue
		}
		special := isSpecialComment(t.data)
		if !special && !isTerminated(t.data) {
			return nil, &CommentError{Offset: t.off}
		}
		if keepSpecial && special {
			out = append(out, t)
			continue
		}
		// comment separates tokens, do not let them glue together
		if len(out) > 0 && i+1 < len(tokens) && endsWord(out[len(out)-1].tt) && startsWord(tokens[i+1].tt) {
			out = append(out, token{tt: css.WhitespaceToken, data: " ", off: t.off})
		}
	}
	return out, nil
}

// leadingComments cuts comments (if any) from the beginning of tokens.
func leadingComments(tokens []token) ([]Item, []token) {
	var items []Item
	for {
		tokens = trimSpace(tokens)
		if len(tokens) == 0 || tokens[0].tt != css.CommentToken {
			return items, tokens
		}
		comment := tokens[0].data
		items = append(items, Item{Comment: &comment})
		tokens = tokens[1:]
	}
}
