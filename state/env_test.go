package state

import (
	"context"
	"log"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"cssmin/cache"
	"cssmin/config"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.Cache != nil || env.Rpt != nil || env.Charset != nil {
		t.Error("fresh environment must not have cache, report or forced charset")
	}

	time.Sleep(5 * time.Millisecond)
	if env.Uptime() < 5*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 5ms", env.Uptime())
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		env := &LocalEnv{Log: zap.New(core)}

		env.RedirectStdLog()
		log.Print("from standard logger")
		env.RestoreStdLog()

		if logs.FilterMessage("from standard logger").Len() != 1 {
			t.Errorf("standard logger output was not redirected: %v", logs.All())
		}
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		// Should not panic
		env.RestoreStdLog()
	})
}

func TestLocalEnv_Minifier(t *testing.T) {
	t.Run("defaults without config", func(t *testing.T) {
		env := &LocalEnv{}
		m := env.Minifier()
		if !m.Options().KeepSpecialComments || m.Options().Newline != "\n" {
			t.Errorf("unexpected options %+v", m.Options())
		}
	})

	t.Run("from config", func(t *testing.T) {
		cfg, err := config.LoadConfiguration("")
		if err != nil {
			t.Fatal(err)
		}
		cfg.Minify.LineEnding = "crlf"
		cfg.Minify.UnquoteURLs = false

		env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t)}
		m := env.Minifier()
		if m.Options().Newline != "\r\n" || m.Options().UnquoteURLs {
			t.Errorf("unexpected options %+v", m.Options())
		}
		out, err := m.Minify("a { color: red }")
		if err != nil {
			t.Fatal(err)
		}
		if out != "a{color:red}\r\n" {
			t.Errorf("Minify() = %q", out)
		}
	})
}

func TestLocalEnv_Close(t *testing.T) {
	c, err := cache.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	rpt, err := (&config.ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}).Prepare()
	if err != nil {
		t.Fatal(err)
	}

	env := &LocalEnv{Cache: c, Rpt: rpt}
	if err := env.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if env.Cache != nil || env.Rpt != nil {
		t.Error("Close() must release resources")
	}
	// second close is harmless
	if err := env.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
