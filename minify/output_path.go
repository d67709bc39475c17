package minify

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"cssmin/config"
	"cssmin/state"
)

// buildOutputPath returns constructed output file path/name based on various
// input parameters. It uses either default naming scheme or user-defined
// template and takes into account whether to preserve source directory
// structure on the output. It cleans up path and if requested transliterates
// it.
func buildOutputPath(src, dst string, kind srcKind, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)

	expandedName := expandOutputNameTemplate(src, kind, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, buildDefaultFileName(src, env))
	}
	return assemblePathWithSubdirs(outDir, expandedName, env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildDefaultFileName(src string, env *state.LocalEnv) string {
	ext := filepath.Ext(src)
	return cleanPathSegment(strings.TrimSuffix(filepath.Base(src), ext)+".min"+ext, env)
}

func expandOutputNameTemplate(src string, kind srcKind, env *state.LocalEnv) string {
	if env.Cfg.Output.NameTemplate == "" {
		return ""
	}
	values := newValues(config.OutputNameTemplateFieldName, src, kind)
	expandedName, err := expandTemplate(config.OutputNameTemplateFieldName, env.Cfg.Output.NameTemplate, values)
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(strings.TrimSpace(expandedName))
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed.
func assemblePathWithSubdirs(outDir, expandedName string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

// cleanPathSegment transliterates every dot separated part of the name
// separately so extensions survive.
func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Output.TransliterateNames {
		parts := strings.Split(segment, ".")
		for i, p := range parts {
			if p != "" {
				parts[i] = slug.Make(p)
			}
		}
		segment = strings.Join(parts, ".")
	}
	return config.CleanFileName(segment)
}
