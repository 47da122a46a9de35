// Package config loads the .poreplace.yaml project file and merges it with
// command-line flags.
//
// Precedence, lowest first: built-in defaults, the project file, flags that
// were set explicitly on the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/table"
)

// FileName is the default project file name.
const FileName = ".poreplace.yaml"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .poreplace.yaml structure.
type Config struct {
	// CSVDir holds the <Entity>_<LANG>.csv tables. Relative paths in the
	// project file are resolved against the file's directory.
	CSVDir string `yaml:"csv_dir,omitempty"`
	// Entity is the table file prefix (default "Item").
	Entity string `yaml:"entity,omitempty"`
	// Layout is the CSV header layout: saint or simple.
	Layout string `yaml:"layout,omitempty"`

	Source       lang.Language `yaml:"source,omitempty"`
	Target       lang.Language `yaml:"target,omitempty"`
	SourceColumn string        `yaml:"source_column,omitempty"`
	TargetColumn string        `yaml:"target_column,omitempty"`

	OnlyEmpty bool `yaml:"only_empty,omitempty"`
	Annotate  bool `yaml:"annotate,omitempty"`

	LogFile string `yaml:"log_file,omitempty"`
	Report  string `yaml:"report,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CSVDir:       "csv",
		Entity:       table.DefaultEntity,
		Layout:       table.LayoutSaint.Name,
		Source:       lang.EN,
		Target:       lang.JP,
		SourceColumn: "Singular",
		TargetColumn: "Name",
		LogFile:      "poreplace.log",
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the project file at path on top of the defaults. A missing
// file yields the defaults unless required is set. Unknown keys are errors.
// The result is not validated, since flags may still override it.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	base := filepath.Dir(path)
	file.CSVDir = resolve(base, file.CSVDir)
	file.LogFile = resolve(base, file.LogFile)
	file.Report = resolve(base, file.Report)

	cfg.merge(&file)
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// merge copies every non-zero field of o into c.
func (c *Config) merge(o *Config) {
	if o.CSVDir != "" {
		c.CSVDir = o.CSVDir
	}
	if o.Entity != "" {
		c.Entity = o.Entity
	}
	if o.Layout != "" {
		c.Layout = o.Layout
	}
	if o.Source.Valid() {
		c.Source = o.Source
	}
	if o.Target.Valid() {
		c.Target = o.Target
	}
	if o.SourceColumn != "" {
		c.SourceColumn = o.SourceColumn
	}
	if o.TargetColumn != "" {
		c.TargetColumn = o.TargetColumn
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.Report != "" {
		c.Report = o.Report
	}
	c.OnlyEmpty = c.OnlyEmpty || o.OnlyEmpty
	c.Annotate = c.Annotate || o.Annotate
	c.Verbose = c.Verbose || o.Verbose
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	switch {
	case !c.Source.Valid():
		return fmt.Errorf("%w: source language not set (valid: %v)", ErrInvalid, lang.Codes())
	case !c.Target.Valid():
		return fmt.Errorf("%w: target language not set (valid: %v)", ErrInvalid, lang.Codes())
	case c.Source == c.Target:
		return fmt.Errorf("%w: source and target language are both %s", ErrInvalid, c.Source)
	case c.Entity == "":
		return fmt.Errorf("%w: entity must not be empty", ErrInvalid)
	case c.SourceColumn == "" || c.TargetColumn == "":
		return fmt.Errorf("%w: source and target columns must not be empty", ErrInvalid)
	case c.LogFile == "":
		return fmt.Errorf("%w: log file must not be empty", ErrInvalid)
	}
	if _, err := table.LayoutByName(c.Layout); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// TableLayout returns the parsed layout. Call after Validate.
func (c *Config) TableLayout() table.Layout {
	l, _ := table.LayoutByName(c.Layout)
	return l
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

// BindFlags registers one flag per setting on fs, writing into c. The
// current values of c become the flag defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.CSVDir, "csv-dir", c.CSVDir, "Directory with <Entity>_<LANG>.csv tables")
	fs.StringVar(&c.Entity, "entity", c.Entity, "Table file prefix")
	fs.StringVar(&c.Layout, "layout", c.Layout, "CSV header layout: saint, simple")
	fs.Var(&c.Source, "src", fmt.Sprintf("Source language %v", lang.Codes()))
	fs.Var(&c.Target, "tgt", fmt.Sprintf("Target language %v", lang.Codes()))
	fs.StringVar(&c.SourceColumn, "src-column", c.SourceColumn, "Source table column to match against")
	fs.StringVar(&c.TargetColumn, "tgt-column", c.TargetColumn, "Target table column to substitute")
	fs.BoolVar(&c.OnlyEmpty, "only-empty", c.OnlyEmpty, "Only fill entries with an empty msgstr")
	fs.BoolVar(&c.Annotate, "annotate", c.Annotate, "Add a translator comment to replaced entries")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Log file, truncated on each run")
	fs.StringVar(&c.Report, "report", c.Report, "Write a YAML report of the run to this path")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Enable debug logging")
}

// Overlay copies the settings whose flags were set explicitly on fs from
// flags into c. flags must be the Config passed to BindFlags.
func (c *Config) Overlay(fs *pflag.FlagSet, flags *Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "csv-dir":
			c.CSVDir = flags.CSVDir
		case "entity":
			c.Entity = flags.Entity
		case "layout":
			c.Layout = flags.Layout
		case "src":
			c.Source = flags.Source
		case "tgt":
			c.Target = flags.Target
		case "src-column":
			c.SourceColumn = flags.SourceColumn
		case "tgt-column":
			c.TargetColumn = flags.TargetColumn
		case "only-empty":
			c.OnlyEmpty = flags.OnlyEmpty
		case "annotate":
			c.Annotate = flags.Annotate
		case "log-file":
			c.LogFile = flags.LogFile
		case "report":
			c.Report = flags.Report
		case "verbose":
			c.Verbose = flags.Verbose
		}
	})
}
