package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssmin/cache"
	"cssmin/config"
	"cssmin/minify"
	"cssmin/state"
)

func minifyCommand() *cli.Command {
	return &cli.Command{
		Name:         "minify",
		Usage:        "Minifies CSS file(s)",
		OnUsageError: usageErrorHandler,
		Action:       minify.Run,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "when producing output do not keep input directory structure"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
			&cli.StringFlag{Name: "charset",
				Usage: "decode sources without byte order mark from `ENCODING` and write results back in it (see IANA.org for character set names)"},
			&cli.StringFlag{Name: "force-zip-cp",
				Usage: "Force `ENCODING` for ALL non UTF-8 file names in processed archives (see IANA.org for character set names)"},
		},
		ArgsUsage: "SOURCE [DESTINATION]",
		CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to stylesheet(s) to process, following formats are supported:
        path to a file: "[path_to_file]file.css"
        path to a directory: "[path_to_directory]directory" - recursively process all files under directory (symbolic links are not followed)
        path to archive with path inside archive to a particular file: "[path_to_archive]archive.zip[path_in_archive]/file.css"
        path to archive with path inside archive: "[path_to_archive]archive.zip[path_in_archive]" - recursively process all stylesheets under archive path

	When minify.embedded is set in configuration <style> elements of HTML,
	XHTML and SVG files are minified as well. Processing of archives inside
	archives is not supported.

DESTINATION:
    for a single file - output file or existing directory, if absent - STDOUT
    otherwise always a directory, output file name(s) are derived from output.name_template
    if absent - current working directory
`, cli.CommandHelpTemplate),
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "Dumps either default or actual configuration (YAML)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
		},
		OnUsageError: usageErrorHandler,
		Action:       outputConfiguration,
		ArgsUsage:    "DESTINATION",
		CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:            "cache",
		Usage:           "Inspects or clears cache of minification results",
		HideHelpCommand: true,
		OnUsageError:    usageErrorHandler,
		Commands: []*cli.Command{
			{
				Name:         "info",
				Usage:        "Reports cache location, size and number of stored results",
				OnUsageError: usageErrorHandler,
				Action:       cacheInfo,
			},
			{
				Name:         "clear",
				Usage:        "Removes all stored results",
				OnUsageError: usageErrorHandler,
				Action:       cacheClear,
			},
		},
	}
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	var (
		data []byte
		err  error
		kind = "actual"
	)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Outputting configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
	} else {
		env.Log.Info("Outputting configuration", zap.String("state", kind), zap.String("file", fname))
		err = os.WriteFile(fname, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

// openConfiguredCache opens cache database named in configuration even when
// caching is disabled for minification.
func openConfiguredCache(env *state.LocalEnv) (*cache.Cache, error) {
	if len(env.Cfg.Cache.Path) == 0 {
		return nil, fmt.Errorf("cache path is not configured")
	}
	return cache.Open(env.Cfg.Cache.Path, env.Log)
}

func cacheInfo(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)

	fi, err := os.Stat(env.Cfg.Cache.Path)
	switch {
	case os.IsNotExist(err):
		env.Log.Info("Cache does not exist", zap.String("path", env.Cfg.Cache.Path), zap.Bool("enabled", env.Cfg.Cache.Enable))
		return nil
	case err != nil:
		return fmt.Errorf("unable to access cache: %w", err)
	}

	c, err := openConfiguredCache(env)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Len()
	if err != nil {
		return err
	}
	env.Log.Info("Cache",
		zap.String("path", env.Cfg.Cache.Path),
		zap.Bool("enabled", env.Cfg.Cache.Enable),
		zap.Int("results", n),
		zap.Int64("size", fi.Size()),
		zap.Duration("max_age", env.Cfg.Cache.MaxAge))
	return nil
}

func cacheClear(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)

	c, err := openConfiguredCache(env)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Clear()
	if err != nil {
		return err
	}
	env.Log.Info("Cache cleared", zap.String("path", env.Cfg.Cache.Path), zap.Int("removed", n))
	return nil
}
