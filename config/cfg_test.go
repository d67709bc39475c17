package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
minify:
  keep_special_comments: false
  reduce_shorthands: false
  unquote_urls: true
  embedded: true
  line_ending: crlf
output:
  name_template: "{{ .Name }}{{ .Ext }}"
  transliterate_names: true
cache:
  enable: true
  path: ` + filepath.Join(tmpDir, "cache.db") + `
logging:
  console:
    level: normal
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "test-report.zip") + `
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Minify.KeepSpecialComments {
		t.Error("Expected KeepSpecialComments to be false")
	}
	if !cfg.Minify.Embedded {
		t.Error("Expected Embedded to be true")
	}
	if cfg.Output.NameTemplate != "{{ .Name }}{{ .Ext }}" {
		t.Errorf("NameTemplate = %q, template must not be expanded", cfg.Output.NameTemplate)
	}
	if !cfg.Output.TransliterateNames {
		t.Error("Expected TransliterateNames to be true")
	}
	if !cfg.Cache.Enable || filepath.Base(cfg.Cache.Path) != "cache.db" {
		t.Errorf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("FileLogger.Mode = %q, want append", cfg.Logging.FileLogger.Mode)
	}

	opts := cfg.Minify.Options()
	if opts.Newline != "\r\n" || opts.ReduceShorthands || !opts.UnquoteURLs {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `version: 1
minify:
  embedded: true
  invalid indent
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfiguration_UnknownFields(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "unknown.yaml")

	configWithUnknown := `version: 1
unknown_field: value
minify:
  embedded: true
`

	if err := os.WriteFile(configPath, []byte(configWithUnknown), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfiguration(configPath)
	if err == nil {
		t.Error("Expected error for unknown fields")
	}
}

func TestLoadConfiguration_ValidationError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"version", "version: 2\n"},
		{"line ending", "version: 1\nminify:\n  line_ending: cr\n"},
		{"console level", "version: 1\nlogging:\n  console:\n    level: verbose\n"},
		{"empty name template", "version: 1\noutput:\n  name_template: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid_values.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestLoadConfiguration_MergeWithDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	partialConfig := `version: 1
minify:
  unquote_urls: false
`

	if err := os.WriteFile(configPath, []byte(partialConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Minify.UnquoteURLs {
		t.Error("Expected UnquoteURLs to be false from config file")
	}
	if !cfg.Minify.KeepSpecialComments || !cfg.Minify.ReduceShorthands {
		t.Error("Expected defaults for fields not mentioned in config file")
	}
	if cfg.Output.NameTemplate == "" {
		t.Error("NameTemplate should have default value")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	cfg := &Config{}
	_, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Minify: MinifyConfig{
			KeepSpecialComments: true,
			LineEnding:          "lf",
		},
		Output: OutputConfig{
			NameTemplate: "{{ .Name }}.min{{ .Ext }}",
		},
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	if !strings.Contains(string(data), "keep_special_comments: true") {
		t.Errorf("Dump() output missing minify section:\n%s", data)
	}

	cfg2 := &Config{}
	_, err = unmarshalConfig(data, cfg2, false)
	if err != nil {
		t.Errorf("Dumped config cannot be loaded: %v", err)
	}

	if cfg2.Version != cfg.Version || cfg2.Output.NameTemplate != cfg.Output.NameTemplate {
		t.Errorf("mismatch after dump/load: got %+v", cfg2)
	}
}

func TestUnmarshalConfig(t *testing.T) {
	t.Run("valid config without processing", func(t *testing.T) {
		data := []byte(`version: 1`)
		cfg := &Config{}

		result, err := unmarshalConfig(data, cfg, false)
		if err != nil {
			t.Errorf("unmarshalConfig() error = %v", err)
		}

		if result == nil {
			t.Fatal("unmarshalConfig() returned nil")
		}

		if result.Version != 1 {
			t.Errorf("Version = %d, want 1", result.Version)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		data := []byte(`invalid: [yaml`)
		cfg := &Config{}

		_, err := unmarshalConfig(data, cfg, false)
		if err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	data := []byte("version: 99\n")
	cfg := &Config{}

	_, err := unmarshalConfig(data, cfg, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Minify.LineEnding != "lf" {
		t.Errorf("LineEnding = %q, want lf", cfg.Minify.LineEnding)
	}
	if cfg.Cache.Enable {
		t.Error("cache should be disabled by default")
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("console level = %q, want normal", cfg.Logging.ConsoleLogger.Level)
	}

	opts := cfg.Minify.Options()
	if !opts.KeepSpecialComments || !opts.ReduceShorthands || !opts.UnquoteURLs || opts.Newline != "\n" {
		t.Errorf("unexpected default options %+v", opts)
	}
}

func TestMinifyConfig_Options(t *testing.T) {
	tests := []struct {
		name string
		conf MinifyConfig
		want string
	}{
		{"lf", MinifyConfig{LineEnding: "lf"}, "\n"},
		{"crlf", MinifyConfig{LineEnding: "crlf"}, "\r\n"},
		{"empty", MinifyConfig{}, "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conf.Options().Newline; got != tt.want {
				t.Errorf("Newline = %q, want %q", got, tt.want)
			}
		})
	}
}
