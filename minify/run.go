// Package minify drives minification of stylesheets found in files,
// directories and zip archives.
package minify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"cssmin/archive"
	"cssmin/cache"
	"cssmin/css"
	"cssmin/state"
)

// batch keeps state of a single minify invocation. Sources are processed
// sequentially.
type batch struct {
	env      *state.LocalEnv
	log      *zap.Logger
	minifier *css.Minifier
	out      io.Writer // single source without destination goes here

	processed, failed, skipped int
}

func newBatch(env *state.LocalEnv, out io.Writer) *batch {
	log := env.Log.Named("minify")
	return &batch{
		env:      env,
		log:      log,
		minifier: env.Minifier(),
		out:      out,
	}
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	b := newBatch(env, os.Stdout)
	log := b.log

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) != 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	if cs := cmd.String("charset"); len(cs) > 0 {
		env.Charset, err = ianaindex.IANA.Encoding(cs)
		if err != nil || env.Charset == nil {
			return fmt.Errorf("unknown character set requested (%s): %w", cs, err)
		}
		n, _ := ianaindex.IANA.Name(env.Charset)
		log.Debug("Forcefully decoding sources without byte order mark", zap.String("charset", n))
	}

	if env.Cache == nil && env.Cfg.Cache.Enable {
		openCache(env, log)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		hits, misses := env.Cache.Stats()
		log.Info("Processing completed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("processed", b.processed),
			zap.Int("failed", b.failed),
			zap.Int("skipped", b.skipped),
			zap.Int("cache_hits", hits),
			zap.Int("cache_misses", misses))
	}(time.Now())

	if err := b.process(ctx, src, dst); err != nil {
		return err
	}
	if b.failed > 0 && b.processed == 0 {
		return fmt.Errorf("unable to minify any of %d source(s)", b.failed)
	}
	return nil
}

func openCache(env *state.LocalEnv, log *zap.Logger) {
	c, err := cache.Open(env.Cfg.Cache.Path, env.Log)
	if err != nil {
		log.Warn("Unable to open cache, continuing without it", zap.Error(err))
		return
	}
	env.Cache = c

	if env.Cfg.Cache.MaxAge <= 0 {
		return
	}
	n, err := c.Prune(time.Now().Add(-env.Cfg.Cache.MaxAge))
	if err != nil {
		log.Warn("Unable to prune cache", zap.Error(err))
		return
	}
	log.Debug("Cache pruned", zap.Int("removed", n), zap.Duration("max_age", env.Cfg.Cache.MaxAge))
}

// process determines the input type (directory, archive with optional path
// inside, or single file) and processes accordingly. Missing path components
// at the end of src are treated as path inside archive.
func (b *batch) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if dst, err = defaultDestination(dst); err != nil {
				return err
			}
			if err := b.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			if dst, err = defaultDestination(dst); err != nil {
				return err
			}
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := b.processArchive(ctx, head, filepath.ToSlash(tail), "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		return b.processSingle(ctx, head, dst)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

func defaultDestination(dst string) (string, error) {
	if len(dst) != 0 {
		return dst, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("unable to get working directory: %w", err)
	}
	return wd, nil
}

// processSingle handles source given as a single file. Result goes to
// standard output when there is no destination, into destination directory
// when it exists, or to the destination file otherwise.
func (b *batch) processSingle(ctx context.Context, path, dst string) error {
	kind, enc, err := isSourceFile(path, b.env.Cfg.Minify.Embedded)
	if err != nil {
		// checking format - but cannot open target file
		return fmt.Errorf("unable to check file type: %w", err)
	}
	if kind == kindUnknown {
		return fmt.Errorf("input was not recognized as stylesheet (%s)", path)
	}

	var outputName string
	if len(dst) != 0 {
		if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
			outputName = buildOutputPath(filepath.Base(path), dst, kind, b.env)
		} else {
			outputName = dst
		}
	}

	file, err := os.Open(path)
	if err != nil {
		b.failed++
		return fmt.Errorf("unable to open source: %w", err)
	}
	defer file.Close()

	return b.processFile(ctx, file, filepath.Base(path), outputName, kind, enc)
}

type dirEntry struct {
	path, rel string
}

// processDir walks directory tree finding stylesheets and archives and
// processes them in natural order of their relative paths.
func (b *batch) processDir(ctx context.Context, dir, dst string) (err error) {
	var entries []dirEntry

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			b.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		entries = append(entries, dirEntry{path: path, rel: rel})
		return nil
	})
	if err != nil {
		return err
	}

	slices.SortStableFunc(entries, func(x, y dirEntry) int {
		switch {
		case natural.Less(x.rel, y.rel):
			return -1
		case natural.Less(y.rel, x.rel):
			return 1
		}
		return 0
	})

	count := 0
	defer func() {
		if err == nil && count == 0 {
			b.log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		isArchive, err := isArchiveFile(e.path)
		if err != nil {
			b.log.Warn("Skipping file", zap.String("file", e.path), zap.Error(err))
			continue
		}
		if isArchive {
			count++
			if err := b.processArchive(ctx, e.path, "", filepath.Dir(e.rel), dst); err != nil {
				b.log.Error("Unable to process archive", zap.String("file", e.path), zap.Error(err))
			}
			continue
		}

		kind, enc, err := isSourceFile(e.path, b.env.Cfg.Minify.Embedded)
		if err != nil {
			b.log.Warn("Skipping file", zap.String("file", e.path), zap.Error(err))
			continue
		}
		if kind == kindUnknown || isMinifiedName(e.rel) {
			b.skipped++
			b.log.Debug("Skipping file, not recognized as source or archive", zap.String("file", e.path))
			continue
		}

		count++
		b.processPath(ctx, e.path, e.rel, dst, kind, enc)
	}
	return nil
}

func (b *batch) processPath(ctx context.Context, path, rel, dst string, kind srcKind, enc srcEncoding) {
	file, err := os.Open(path)
	if err != nil {
		b.failed++
		b.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		return
	}
	defer file.Close()

	// errors are logged by processFile
	_ = b.processFile(ctx, file, rel, buildOutputPath(rel, dst, kind, b.env), kind, enc)
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them. "pathOut" is archive location relative to the
// processed directory.
func (b *batch) processArchive(ctx context.Context, path, pathIn, pathOut, dst string) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			b.log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	err = archive.Walk(path, pathIn, b.env.CodePage, func(arc string, e archive.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind, enc, err := isSourceInArchive(e.File, e.Name, b.env.Cfg.Minify.Embedded)
		if err != nil {
			b.log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("path", e.Name), zap.Error(err))
			return nil
		}
		if kind == kindUnknown || isMinifiedName(e.Name) {
			b.skipped++
			b.log.Debug("Skipping file, not recognized as source", zap.String("archive", arc), zap.String("file", e.Name))
			return nil
		}

		count++

		r, err := e.File.Open()
		if err != nil {
			b.failed++
			b.log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", e.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		rel := filepath.Join(pathOut, filepath.FromSlash(e.Name))
		_ = b.processFile(ctx, r, rel, buildOutputPath(rel, dst, kind, b.env), kind, enc)
		return nil
	})
	if errors.Is(err, archive.ErrUnsafePath) {
		b.log.Warn("Some archive entries were skipped", zap.String("archive", path), zap.Error(err))
		return nil
	}
	return err
}

// processFile minifies single source. "src" is part of the source path
// (always including file name) relative to the original path. Empty
// "outputName" sends result to standard output.
func (b *batch) processFile(ctx context.Context, r io.Reader, src, outputName string, kind srcKind, enc srcEncoding) (rerr error) {
	b.log.Debug("Minification starting", zap.String("from", src), zap.Stringer("kind", kind))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			rerr = fmt.Errorf("minification panic: %v", r)
			b.log.Error("Minification ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
		}
		if rerr != nil {
			b.failed++
			b.log.Error("Unable to process file", zap.String("file", src), zap.Error(rerr))
			return
		}
		b.processed++
		b.log.Info("Minification completed", zap.String("from", src), zap.String("to", outputName), zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read source: %w", err)
	}

	result, err := b.minifyData(ctx, data, kind, enc, src)
	if err != nil {
		b.env.Rpt.StoreText(path.Join("failed", strings.TrimLeft(filepath.ToSlash(src), "/")), string(data))
		return fmt.Errorf("unable to minify (%s): %w", src, err)
	}

	if len(outputName) == 0 {
		_, err = b.out.Write(result)
		return err
	}
	if err := writeOutput(result, outputName, b.env.Overwrite, b.log); err != nil {
		return err
	}
	if err := b.env.Rpt.StoreCopy(path.Join("results", filepath.Base(outputName)), outputName); err != nil {
		b.log.Warn("Unable to put result into debug report", zap.String("file", outputName), zap.Error(err))
	}
	return nil
}

// isMinifiedName recognizes results of the previous runs with default name
// template.
func isMinifiedName(name string) bool {
	ext := filepath.Ext(name)
	return strings.HasSuffix(strings.TrimSuffix(name, ext), ".min")
}
