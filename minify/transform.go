package minify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"cssmin/cache"
)

var (
	cssCharsetRule  = regexp.MustCompile(`^@charset\s*"([^"]+)"\s*;`)
	xmlEncodingDecl = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)
)

// decoded is source text converted to UTF-8 along with encoding output has to
// be converted back to (nil when output stays UTF-8).
type decoded struct {
	text    string
	enc     encoding.Encoding
	label   string
	decoded bool // text was converted before parsing
}

// decode converts source data to UTF-8. Byte order mark always wins, then
// forced character set, then whatever source declares about itself.
func (b *batch) decode(data []byte, kind srcKind, enc srcEncoding) (decoded, error) {
	if enc != encUnknown {
		text, err := io.ReadAll(selectReader(bytes.NewReader(data), enc))
		if err != nil {
			return decoded{}, fmt.Errorf("unable to decode source: %w", err)
		}
		return decoded{text: string(text), label: "utf-8", decoded: true}, nil
	}

	if b.env.Charset != nil {
		text, err := b.env.Charset.NewDecoder().Bytes(data)
		if err != nil {
			return decoded{}, fmt.Errorf("unable to decode source: %w", err)
		}
		n, _ := ianaindex.IANA.Name(b.env.Charset)
		return decoded{text: string(text), enc: b.env.Charset, label: n, decoded: true}, nil
	}

	switch kind {
	case kindStylesheet:
		m := cssCharsetRule.FindSubmatch(data)
		if m == nil {
			break
		}
		e, err := ianaindex.IANA.Encoding(string(m[1]))
		if err != nil || e == nil {
			b.log.Warn("Unknown character set in @charset rule, assuming UTF-8", zap.ByteString("charset", m[1]), zap.Error(err))
			break
		}
		n, _ := ianaindex.IANA.Name(e)
		if strings.EqualFold(n, "utf-8") {
			break
		}
		text, err := e.NewDecoder().Bytes(data)
		if err != nil {
			return decoded{}, fmt.Errorf("unable to decode source from %s: %w", n, err)
		}
		return decoded{text: string(text), enc: e, label: n, decoded: true}, nil

	case kindHTML:
		e, n, _ := charset.DetermineEncoding(data, "text/html")
		if n == "utf-8" {
			break
		}
		text, err := e.NewDecoder().Bytes(data)
		if err != nil {
			return decoded{}, fmt.Errorf("unable to decode source from %s: %w", n, err)
		}
		return decoded{text: string(text), enc: e, label: n, decoded: true}, nil

	case kindXML:
		// XML reader handles declared encoding itself
		return decoded{text: string(data), label: "xml"}, nil
	}
	return decoded{text: string(data), label: "utf-8"}, nil
}

// minifyData produces final output for a single source. Results are looked up
// in and stored to the cache when it is enabled.
func (b *batch) minifyData(ctx context.Context, data []byte, kind srcKind, enc srcEncoding, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := b.decode(data, kind, enc)
	if err != nil {
		return nil, err
	}

	key := cache.Key(data, b.minifier.Options().Fingerprint()+":"+kind.String()+":"+src.label)
	result, found, err := b.env.Cache.Get(key)
	if err != nil {
		b.log.Warn("Unable to query cache", zap.String("source", name), zap.Error(err))
	}

	if found {
		b.log.Debug("Using cached result", zap.String("source", name))
	} else {
		switch kind {
		case kindStylesheet:
			result, err = b.minifyCSS(src.text, name)
		case kindHTML:
			result, err = b.minifyHTML(src.text, name)
		case kindXML:
			result, err = b.minifyXML(src, name)
		default:
			// this should never happen
			panic(fmt.Sprintf("unsupported source kind %d", kind))
		}
		if err != nil {
			return nil, err
		}
		if err := b.env.Cache.Put(key, result); err != nil {
			b.log.Warn("Unable to store result in cache", zap.String("source", name), zap.Error(err))
		}
	}

	if src.enc == nil {
		return []byte(result), nil
	}
	out, err := src.enc.NewEncoder().Bytes([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("unable to encode result to %s: %w", src.label, err)
	}
	return out, nil
}

func (b *batch) minifyCSS(text, name string) (string, error) {
	sheet, err := b.minifier.Parse(text, name)
	if err != nil {
		return "", err
	}
	if b.env.Rpt != nil {
		b.env.Rpt.StoreText(path.Join("trees", filepath.ToSlash(name))+".txt", sheet.Dump())
	}
	return sheet.String(), nil
}

// minifyEmbedded minifies body of a single style element. Trailing line
// terminator is not needed inside markup.
func (b *batch) minifyEmbedded(text, name string, n int) (string, error) {
	res, err := b.minifyCSS(text, fmt.Sprintf("%s#style%d", name, n))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(res, "\r\n"), nil
}

// minifyHTML minifies every <style> element, everything else is copied as is.
func (b *batch) minifyHTML(text, name string) (string, error) {
	var (
		out     strings.Builder
		z       = html.NewTokenizer(strings.NewReader(text))
		inStyle bool
		count   int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("unable to tokenize html: %w", err)
			}
			out.Write(z.Raw())
			b.log.Debug("Embedded stylesheets processed", zap.String("source", name), zap.Int("count", count))
			return out.String(), nil
		case html.StartTagToken:
			tn, _ := z.TagName()
			inStyle = string(tn) == "style"
		case html.EndTagToken:
			inStyle = false
		case html.TextToken:
			if inStyle {
				count++
				res, err := b.minifyEmbedded(string(z.Raw()), name, count)
				if err != nil {
					return "", err
				}
				out.WriteString(res)
				continue
			}
		}
		out.Write(z.Raw())
	}
}

// minifyXML minifies every style element of XHTML or SVG document.
func (b *batch) minifyXML(src decoded, name string) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
		PreserveCData: true,
	}
	if src.decoded {
		// already UTF-8 whatever declaration says
		doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
			return input, nil
		}
	}
	if _, err := doc.ReadFrom(strings.NewReader(src.text)); err != nil {
		return "", fmt.Errorf("unable to parse xml: %w", err)
	}

	count := 0
	var walk func(e *etree.Element) error
	walk = func(e *etree.Element) error {
		for _, child := range e.ChildElements() {
			if child.Tag == "style" {
				count++
				res, err := b.minifyEmbedded(child.Text(), name, count)
				if err != nil {
					return err
				}
				if isCData(child) {
					child.SetCData(res)
				} else {
					child.SetText(res)
				}
				continue
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(&doc.Element); err != nil {
		return "", err
	}
	b.log.Debug("Embedded stylesheets processed", zap.String("source", name), zap.Int("count", count))

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("unable to write xml: %w", err)
	}
	if src.decoded {
		return buf.String(), nil
	}

	// Reader converted document to UTF-8, declaration still names original encoding
	if label := declaredEncoding(doc); label != "" {
		e, n := charset.Lookup(label)
		if e != nil && n != "utf-8" {
			out, err := e.NewEncoder().Bytes(buf.Bytes())
			if err != nil {
				return "", fmt.Errorf("unable to encode xml to %s: %w", n, err)
			}
			return string(out), nil
		}
	}
	return buf.String(), nil
}

func isCData(e *etree.Element) bool {
	for _, t := range e.Child {
		if cd, ok := t.(*etree.CharData); ok && cd.IsCData() {
			return true
		}
	}
	return false
}

func declaredEncoding(doc *etree.Document) string {
	for _, t := range doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			if m := xmlEncodingDecl.FindStringSubmatch(pi.Inst); m != nil {
				return m[1]
			}
		}
	}
	return ""
}
