// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"cssmin/cache"
	"cssmin/config"
	"cssmin/css"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg   *config.Config
	Rpt   *config.Report
	Log   *zap.Logger
	Cache *cache.Cache

	// used by minify subcommand
	NoDirs    bool
	Overwrite bool
	Charset   encoding.Encoding // forced encoding of stylesheets, nil - detect by BOM
	CodePage  encoding.Encoding // encoding of non UTF-8 names in zip archives

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Minifier returns css minifier configured according to loaded configuration.
func (e *LocalEnv) Minifier() *css.Minifier {
	opts := css.DefaultOptions()
	if e.Cfg != nil {
		opts = e.Cfg.Minify.Options()
	}
	return css.NewMinifier(e.Log, opts)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// Close releases cache and finalizes debug report.
func (e *LocalEnv) Close() (err error) {
	err = multierr.Append(err, e.Cache.Close())
	e.Cache = nil
	err = multierr.Append(err, e.Rpt.Close())
	e.Rpt = nil
	return err
}
