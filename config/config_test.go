package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/table"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaultsAndMerge(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), FileName), false)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if *cfg != *Default() {
			t.Fatalf("Load = %+v, want defaults", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("defaults do not validate: %v", err)
		}
	})

	t.Run("missing required file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true); err == nil {
			t.Fatal("expected error for missing required file")
		}
	})

	t.Run("empty file returns defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""), true)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.Entity != table.DefaultEntity || cfg.Target != lang.JP {
			t.Fatalf("Load = %+v, want defaults", cfg)
		}
	})

	t.Run("file values and relative paths", func(t *testing.T) {
		path := writeConfig(t, "csv_dir: tables\n"+
			"entity: Action\n"+
			"source: de\n"+
			"target: fr\n"+
			"layout: simple\n"+
			"annotate: true\n"+
			"report: /tmp/report.yaml\n")
		cfg, err := Load(path, true)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		dir := filepath.Dir(path)
		if cfg.CSVDir != filepath.Join(dir, "tables") {
			t.Fatalf("CSVDir = %q, want relative to config file", cfg.CSVDir)
		}
		if cfg.Report != "/tmp/report.yaml" {
			t.Fatalf("Report = %q, absolute path should be kept", cfg.Report)
		}
		if cfg.Entity != "Action" || cfg.Source != lang.DE || cfg.Target != lang.FR {
			t.Fatalf("cfg = %+v", cfg)
		}
		if !cfg.Annotate || cfg.OnlyEmpty {
			t.Fatalf("Annotate/OnlyEmpty = %v/%v", cfg.Annotate, cfg.OnlyEmpty)
		}
		if cfg.SourceColumn != "Singular" || cfg.LogFile != "poreplace.log" {
			t.Fatalf("unset keys should keep defaults: %+v", cfg)
		}
		if cfg.TableLayout() != table.LayoutSimple {
			t.Fatalf("TableLayout = %+v", cfg.TableLayout())
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := Load(writeConfig(t, "csvdir: tables\n"), true)
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "csvdir") {
			t.Fatalf("error %q does not name the key", err)
		}
	})

	t.Run("rejects unknown language", func(t *testing.T) {
		_, err := Load(writeConfig(t, "target: xx\n"), true)
		if !errors.Is(err, lang.ErrUnknown) {
			t.Fatalf("err = %v, want lang.ErrUnknown", err)
		}
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"same languages": func(c *Config) { c.Target = lang.EN },
		"no source":      func(c *Config) { c.Source = 0 },
		"empty entity":   func(c *Config) { c.Entity = "" },
		"empty column":   func(c *Config) { c.TargetColumn = "" },
		"bad layout":     func(c *Config) { c.Layout = "xlsx" },
		"no log file":    func(c *Config) { c.LogFile = "" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: err = %v, want ErrInvalid", name, err)
		}
	}
}

func TestOverlayOnlyChangedFlags(t *testing.T) {
	cfg, err := Load(writeConfig(t, "target: de\nentity: Action\n"), true)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	flags := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.BindFlags(fs)
	if err := fs.Parse([]string{"--src", "fr", "--only-empty", "--csv-dir", "data"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg.Overlay(fs, flags)
	if cfg.Source != lang.FR || cfg.CSVDir != "data" || !cfg.OnlyEmpty {
		t.Fatalf("changed flags not applied: %+v", cfg)
	}
	if cfg.Target != lang.DE || cfg.Entity != "Action" {
		t.Fatalf("unchanged flags overrode the file: %+v", cfg)
	}
}

func TestBindFlagsRejectsUnknownLanguage(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	Default().BindFlags(fs)
	if err := fs.Parse([]string{"--tgt", "ko"}); err == nil {
		t.Fatal("expected error for unknown language")
	}
}
