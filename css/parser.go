package css

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// parser keeps state of a single Parse call.
type parser struct {
	log      *zap.Logger
	opts     Options
	warnings []error
}

func (p *parser) warn(msg string, err error, fields ...zap.Field) {
	p.warnings = append(p.warnings, err)
	p.log.Warn(msg, append(fields, zap.Error(err))...)
}

// parseBody splits tokens into declarations, nested blocks, at-rule
// statements and preserved comments. Top-level text (nested == false) cannot
// have declarations.
func (p *parser) parseBody(tokens []token, nested bool) ([]Declaration, []Item) {
	var (
		decls []Declaration
		items []Item
	)
	start, depth := 0, 0
	for i := 0; i < len(tokens); i++ {
		switch tt := tokens[i].tt; tt {
		case css.SemicolonToken:
			if depth == 0 {
				decls, items = p.fragment(tokens[start:i], nested, decls, items)
				start = i + 1
			}
		case css.LeftBraceToken:
			depth = 0
			end := matchBrace(tokens, i)
			if end < 0 {
				p.warn("Dropping unterminated block",
					fmt.Errorf("%w: unterminated block %q at offset %d", ErrIncompleteSelector, strings.TrimSpace(text(tokens[start:])), tokens[i].off))
				return decls, items
			}
			items = append(items, p.block(tokens[start:i], tokens[i+1:end])...)
			start, i = end+1, end
		case css.RightBraceToken:
			depth = 0
			p.warn("Dropping unbalanced block",
				fmt.Errorf("%w: no opening brace for %q", ErrIncompleteSelector, strings.TrimSpace(text(tokens[start:i+1]))))
			start = i + 1
		default:
			depth = max(depth+nesting(tt), 0)
		}
	}
	return p.fragment(tokens[start:], nested, decls, items)
}

// fragment handles tokens between two structural separators: preserved
// comments, at-rule statements and declarations.
func (p *parser) fragment(tokens []token, nested bool, decls []Declaration, items []Item) ([]Declaration, []Item) {
	comments, rest := leadingComments(tokens)
	items = append(items, comments...)

	switch {
	case len(rest) == 0:
	case strings.HasPrefix(rest[0].data, "@"):
		stmt := normalizeSelector(rest)
		items = append(items, Item{AtRule: &stmt})
		p.log.Debug("Parsed statement", zap.String("at-rule", stmt))
	case !nested:
		p.warn("Dropping text outside of block", fmt.Errorf("%w: %q", ErrIncompleteSelector, text(rest)))
	default:
		d, err := p.declaration(rest)
		if err != nil {
			p.warn("Dropping declaration", err, zap.String("declaration", text(rest)))
			break
		}
		decls = append(decls, d)
	}
	return decls, items
}

// block builds Block from selector (header) and body tokens without braces.
// Block which has nothing left after parsing its body is dropped, so output
// never has empty bodies.
func (p *parser) block(header, body []token) []Item {
	items, header := leadingComments(header)

	sel := normalizeSelector(header)
	if sel == "" {
		p.warn("Dropping block", fmt.Errorf("%w: no selector for %q", ErrIncompleteSelector, strings.TrimSpace(text(body))))
		return items
	}

	p.log.Debug("Parsing block", zap.String("selector", sel), zap.String("body", strings.TrimSpace(text(body))))

	b := &Block{Selector: sel}
	b.Declarations, b.Items = p.parseBody(body, true)
	if len(b.Declarations) == 0 && len(b.Items) == 0 {
		p.warn("Dropping block", fmt.Errorf("%w: empty body for %q", ErrIncompleteSelector, sel), zap.String("selector", sel))
		return items
	}
	sortDeclarations(b.Declarations)
	return append(items, Item{Block: b})
}

// declaration builds Declaration from "property: value" tokens.
func (p *parser) declaration(tokens []token) (Declaration, error) {
	prop, value, found := cutTopLevel(tokens, css.ColonToken)
	prop, value = trimSpace(prop), trimSpace(value)
	if !found || len(prop) == 0 || len(value) == 0 {
		return Declaration{}, fmt.Errorf("%w: %q", ErrIncompleteDeclaration, text(tokens))
	}

	// custom properties are case sensitive and may hold anything
	if prop[0].tt == css.CustomPropertyNameToken {
		return Declaration{Property: text(prop), Values: []ValuePart{ValuePart(text(value))}}, nil
	}

	d := Declaration{Property: strings.ToLower(text(prop))}
	folded, err := tokenize(foldRGB(text(value)))
	if err != nil {
		return Declaration{}, fmt.Errorf("%w: %q: %w", ErrMalformedValue, text(value), err)
	}
	for _, raw := range splitTopLevel(folded, css.CommaToken) {
		part, err := simplifyPart(text(raw), p.opts)
		if err != nil {
			p.warnings = append(p.warnings, err)
			p.log.Warn("Keeping malformed value as is", zap.String("property", d.Property), zap.Error(err))
		}
		d.Values = append(d.Values, ValuePart(part))
	}
	if p.opts.ReduceShorthands && len(d.Values) == 1 && boxShorthands[d.Property] {
		d.Values[0] = ValuePart(reduceBox(string(d.Values[0])))
	}

	p.log.Debug("Parsed declaration", zap.String("property", d.Property), zap.Stringer("declaration", d))
	return d, nil
}

// IsFatal reports whether err aborts minification. Everything else is
// recovered at the smallest enclosing unit.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnterminatedComment)
}
