package minify

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// headerSize is enough for filetype to recognize any type it knows.
const headerSize = 262

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

type srcKind int

const (
	kindUnknown srcKind = iota
	kindStylesheet
	kindHTML
	kindXML
)

func (k srcKind) String() string {
	switch k {
	case kindStylesheet:
		return "css"
	case kindHTML:
		return "html"
	case kindXML:
		return "xml"
	}
	return "unknown"
}

// Stylesheets starting with @charset rule are recognized regardless of their
// name.
var cssType = filetype.NewType("css", "text/css")

func init() {
	filetype.AddMatcher(cssType, func(buf []byte) bool {
		return bytes.HasPrefix(skipBOM(buf), []byte(`@charset "`))
	})
}

// detectKind decides what to do with the file based on its name and first
// bytes. Embedded stylesheets are only looked for when requested.
func detectKind(name string, head []byte, embedded bool) (srcKind, error) {
	if len(head) > 0 {
		t, err := filetype.Match(head)
		if err != nil {
			return kindUnknown, err
		}
		if t == cssType {
			return kindStylesheet, nil
		}
		if t != filetype.Unknown {
			// binary content under whatever name
			return kindUnknown, nil
		}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".css":
		return kindStylesheet, nil
	case ".html", ".htm":
		if embedded {
			return kindHTML, nil
		}
	case ".xhtml", ".svg", ".xml":
		if embedded {
			return kindXML, nil
		}
	}
	return kindUnknown, nil
}

func readHeader(r io.Reader) ([]byte, error) {
	head := make([]byte, headerSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

// isArchiveFile checks if file is a zip archive: by extension first and then
// by content.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHeader(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

// isSourceFile checks if file should be minified and detects its Unicode
// encoding.
func isSourceFile(path string, embedded bool) (srcKind, srcEncoding, error) {
	f, err := os.Open(path)
	if err != nil {
		return kindUnknown, encUnknown, err
	}
	defer f.Close()

	head, err := readHeader(f)
	if err != nil {
		return kindUnknown, encUnknown, err
	}
	kind, err := detectKind(path, head, embedded)
	if err != nil || kind == kindUnknown {
		return kindUnknown, encUnknown, err
	}
	return kind, detectUTF(head), nil
}

// isSourceInArchive is isSourceFile for archive entry.
func isSourceInArchive(f *zip.File, name string, embedded bool) (srcKind, srcEncoding, error) {
	r, err := f.Open()
	if err != nil {
		return kindUnknown, encUnknown, err
	}
	defer r.Close()

	head, err := readHeader(r)
	if err != nil {
		return kindUnknown, encUnknown, fmt.Errorf("unable to read archive entry: %w", err)
	}
	kind, err := detectKind(name, head, embedded)
	if err != nil || kind == kindUnknown {
		return kindUnknown, encUnknown, err
	}
	return kind, detectUTF(head), nil
}

func isUTF8BOM3(buf []byte) bool {
	return buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF looks for byte order mark. UTF-32 LE must be checked before
// UTF-16 LE as they share first two bytes.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case len(buf) >= 4 && isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case len(buf) >= 4 && isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case len(buf) >= 3 && isUTF8BOM3(buf):
		return encUTF8
	case len(buf) >= 2 && isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case len(buf) >= 2 && isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

func skipBOM(buf []byte) []byte {
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return buf[3:]
	}
	return buf
}

// selectReader returns reader producing UTF-8 without byte order mark.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	// this should never happen
	panic(fmt.Sprintf("unsupported encoding %d", enc))
}
