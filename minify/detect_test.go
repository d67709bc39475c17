package minify

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// TestIsArchiveFile tests archive file detection
func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(filePath, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "styles.zip")
		writeZip(t, filePath, map[string]string{"a.css": "a { color: red }"})

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})
}

// TestIsArchiveFile_NonExistent tests with non-existent file
func TestIsArchiveFile_NonExistent(t *testing.T) {
	_, err := isArchiveFile("/nonexistent/file.zip")
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestDetectKind(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

	tests := []struct {
		name     string
		file     string
		head     []byte
		embedded bool
		want     srcKind
	}{
		{"stylesheet", "site.css", []byte("body { color: red }"), false, kindStylesheet},
		{"upper case extension", "SITE.CSS", []byte("body{}"), false, kindStylesheet},
		{"empty stylesheet", "empty.css", nil, false, kindStylesheet},
		{"charset rule without extension", "styles", []byte(`@charset "utf-8"; a{}`), false, kindStylesheet},
		{"charset rule after BOM", "styles.txt", []byte("\xEF\xBB\xBF@charset \"utf-8\";"), false, kindStylesheet},
		{"binary named css", "image.css", png, false, kindUnknown},
		{"html without embedded", "index.html", []byte("<html></html>"), false, kindUnknown},
		{"html with embedded", "index.htm", []byte("<html></html>"), true, kindHTML},
		{"svg with embedded", "logo.svg", []byte("<svg></svg>"), true, kindXML},
		{"xhtml with embedded", "ch1.xhtml", []byte("<?xml version=\"1.0\"?>"), true, kindXML},
		{"other file", "readme.txt", []byte("hello"), true, kindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectKind(tt.file, tt.head, tt.embedded)
			if err != nil {
				t.Fatalf("detectKind() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("detectKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDetectUTF tests UTF encoding detection
func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x00}, encUTF8},
		{"UTF-16 Big Endian BOM", []byte{0xFE, 0xFF, 0x00, 0x00}, encUTF16BigEndian},
		{"UTF-16 Little Endian BOM", []byte{0xFF, 0xFE, 0x01, 0x00}, encUTF16LittleEndian},
		{"UTF-32 Big Endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 Little Endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"short UTF-16 BOM", []byte{0xFE, 0xFF}, encUTF16BigEndian},
		{"No BOM", []byte{0x00, 0x01, 0x02, 0x03}, encUnknown},
		{"Empty", nil, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectReader(t *testing.T) {
	const css = "a{content:\"é\"}"

	for _, enc := range []srcEncoding{encUnknown, encUTF8, encUTF16BigEndian, encUTF16LittleEndian, encUTF32BigEndian, encUTF32LittleEndian} {
		data, err := io.ReadAll(selectReader(readerForEncoding(t, []byte(css), enc), enc))
		if err != nil {
			t.Fatalf("encoding %d: read error = %v", enc, err)
		}
		if string(data) != css {
			t.Errorf("encoding %d: got %q, want %q", enc, data, css)
		}
	}
}

func TestSelectReader_PanicsOnUnknown(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unsupported encoding")
		}
	}()
	selectReader(bytes.NewReader(nil), srcEncoding(42))
}

func TestIsSourceInArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, path, map[string]string{
		"css/a.css":  "\xEF\xBB\xBFa{}",
		"index.html": "<style>a{}</style>",
	})

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer r.Close()

	for _, f := range r.File {
		kind, enc, err := isSourceInArchive(f, f.Name, false)
		if err != nil {
			t.Fatalf("isSourceInArchive(%s) error = %v", f.Name, err)
		}
		switch f.Name {
		case "css/a.css":
			if kind != kindStylesheet || enc != encUTF8 {
				t.Errorf("%s: got (%v, %d)", f.Name, kind, enc)
			}
		case "index.html":
			if kind != kindUnknown {
				t.Errorf("%s: got %v, want unknown", f.Name, kind)
			}
		}
	}
}
