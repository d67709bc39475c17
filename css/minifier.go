// Package css implements CSS minification: comments and whitespace removal,
// value canonicalization and deterministic ordering of declarations inside
// blocks to improve downstream compression.
package css

import (
	"fmt"

	"go.uber.org/zap"
)

// Options controls minification. Zero value strips every comment and does not
// perform optional rewrites.
type Options struct {
	KeepSpecialComments bool   // keep "/**...*/" and "/*!...*/" comments
	ReduceShorthands    bool   // "margin:1px 2px 1px 2px" -> "margin:1px 2px"
	UnquoteURLs         bool   // url("a.png") -> url(a.png) when safe
	Newline             string // written after minified stylesheet, "\n" when empty
}

// DefaultOptions returns options used when nothing else was requested.
func DefaultOptions() Options {
	return Options{
		KeepSpecialComments: true,
		ReduceShorthands:    true,
		UnquoteURLs:         true,
		Newline:             "\n",
	}
}

// Fingerprint identifies options which affect produced output.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("k%t:r%t:u%t:n%q", o.KeepSpecialComments, o.ReduceShorthands, o.UnquoteURLs, o.Newline)
}

// Minifier turns CSS source into its minified form. It has no mutable state
// and could be used concurrently.
type Minifier struct {
	log  *zap.Logger
	opts Options
}

// NewMinifier creates a new CSS minifier.
func NewMinifier(log *zap.Logger, opts Options) *Minifier {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Newline == "" {
		opts.Newline = "\n"
	}
	return &Minifier{log: log.Named("css"), opts: opts}
}

// Options returns options minifier was created with.
func (m *Minifier) Options() Options {
	return m.opts
}

// Parse runs all stages of the pipeline except final rendering. Returned error
// is always fatal (unterminated comment), non-fatal problems are accumulated
// in Stylesheet.Warnings.
// The optional source parameter identifies what's being parsed (for debug logging).
func (m *Minifier) Parse(text string, source ...string) (*Stylesheet, error) {
	log := m.log
	if len(source) > 0 && source[0] != "" {
		log = log.With(zap.String("source", source[0]))
	}

	log.Debug("Joining lines", zap.Int("bytes", len(text)))
	buf := joinLines(text)

	log.Debug("Tokenizing", zap.Int("bytes", len(buf)))
	tokens, err := tokenize(buf)
	if err != nil {
		return nil, err
	}

	log.Debug("Removing comments", zap.Int("tokens", len(tokens)))
	if tokens, err = stripComments(tokens, m.opts.KeepSpecialComments); err != nil {
		return nil, err
	}

	log.Debug("Parsing and processing blocks", zap.Int("tokens", len(tokens)))
	p := &parser{log: log, opts: m.opts}
	_, items := p.parseBody(tokens, false)

	sheet := &Stylesheet{Items: items, Warnings: p.warnings, Newline: m.opts.Newline}
	log.Debug("Processing completed", zap.Int("items", len(sheet.Items)), zap.Int("warnings", len(sheet.Warnings)))
	return sheet, nil
}

// Minify returns minified text. Malformed blocks and declarations are dropped
// from the output, only unterminated comment results in error.
// Non-blank source lines are joined with a single space rather than glued
// together, so "div\np" becomes "div p" and never "divp".
func (m *Minifier) Minify(text string, source ...string) (string, error) {
	sheet, err := m.Parse(text, source...)
	if err != nil {
		return "", err
	}
	return sheet.String(), nil
}

// Minify minifies text with default options and no logging.
func Minify(text string) (string, error) {
	return NewMinifier(nil, DefaultOptions()).Minify(text)
}
