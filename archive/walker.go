// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"golang.org/x/text/encoding"
)

// ErrUnsafePath is reported for entries which could escape destination
// directory when extracted.
var ErrUnsafePath = errors.New("unsafe path (absolute or contains path traversal)")

// Entry is a single file in archive.
type Entry struct {
	Name string // decoded file name, always UTF-8
	File *zip.File
}

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to Walk.
// If an error is returned, processing stops.
type WalkFunc func(archive string, entry Entry) error

// Walk calls walkFn for all files in the archive with names starting with
// pattern, in natural name order ("a2.css" before "a10.css"). Names not
// marked as UTF-8 are decoded with cp when it is not nil. Entries with path
// traversal components ("..") or absolute paths are skipped to prevent Zip
// Slip attacks and reported in returned error after all other entries were
// visited.
func Walk(archive, pattern string, cp encoding.Encoding, walkFn WalkFunc) error {

	// insecure names are dealt with below, entry by entry
	r, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return err
	}
	defer r.Close()

	var (
		entries []Entry
		skipped error
	)
	for _, f := range r.File {
		name := decodeName(f, cp)
		if !isSafePath(name) {
			skipped = multierr.Append(skipped, fmt.Errorf("zip entry %q: %w", name, ErrUnsafePath))
			continue
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			entries = append(entries, Entry{Name: name, File: f})
		}
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	for _, e := range entries {
		if err := walkFn(archive, e); err != nil {
			return err
		}
	}
	return skipped
}

func decodeName(f *zip.File, cp encoding.Encoding) string {
	name := f.Name
	if cp == nil || (!f.NonUTF8 && utf8.ValidString(name)) {
		return name
	}
	if decoded, err := cp.NewDecoder().String(name); err == nil {
		return decoded
	}
	return name
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
