// Package table loads per-language lookup tables (game data CSV exports such
// as Item_EN.csv) and builds the reverse index used to map display text back
// to its row key.
//
// File naming convention: one file per entity and language:
//
//	csv/Item_EN.csv
//	csv/Item_JP.csv
//
// Every language file of an entity shares the same row keys, so a key found
// through the source language's reverse index can be looked up directly in
// the target language's table.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/logging"
)

var (
	// ErrMissingLanguage is returned when the table file for a language does not exist.
	ErrMissingLanguage = errors.New("missing language data")
	// ErrColumnNotFound is returned when a header does not name the requested column.
	ErrColumnNotFound = errors.New("column not found")
)

// DefaultEntity is the entity whose tables are read when none is configured.
const DefaultEntity = "Item"

// ---------------------------------------------------------------------------
// Header layouts
// ---------------------------------------------------------------------------

// Layout describes where column names live in a table's header.
type Layout struct {
	// Name identifies the layout in configuration.
	Name string
	// HeaderRows is the number of leading rows that are not data.
	HeaderRows int
	// KeyRow is the header row holding the key column name.
	KeyRow int
	// NameRow is the header row holding value column names.
	NameRow int
	// KeyColumn is the key column name looked up in KeyRow.
	KeyColumn string
}

var (
	// LayoutSaint is the exd export layout: a row of column indices
	// ("key", "0", "1", ...), a row of column names ("#", "Singular",
	// "Name", ...) and a row of column types.
	LayoutSaint = Layout{Name: "saint", HeaderRows: 3, KeyRow: 0, NameRow: 1, KeyColumn: "key"}
	// LayoutSimple is a plain CSV with a single header row.
	LayoutSimple = Layout{Name: "simple", HeaderRows: 1, KeyRow: 0, NameRow: 0, KeyColumn: "key"}
)

// LayoutByName resolves a layout name from configuration.
func LayoutByName(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LayoutSaint.Name:
		return LayoutSaint, nil
	case LayoutSimple.Name:
		return LayoutSimple, nil
	}
	return Layout{}, fmt.Errorf("unknown table layout %q (valid: %s, %s)", name, LayoutSaint.Name, LayoutSimple.Name)
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// Table maps row keys to display values for one language and one column.
type Table struct {
	Lang   lang.Language
	Entity string
	Column string
	Path   string

	values map[string]string
	keys   []string
}

// New creates an empty table. Mostly useful for tests and for building
// tables from sources other than CSV.
func New(l lang.Language, column string) *Table {
	return &Table{Lang: l, Entity: DefaultEntity, Column: column, values: make(map[string]string)}
}

// Set stores a row. Empty keys and values are ignored. It returns true when
// the key was already present (the new value replaces the old one).
func (t *Table) Set(key, value string) (replaced bool) {
	if key == "" || value == "" {
		return false
	}
	if _, ok := t.values[key]; ok {
		replaced = true
	} else {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
	return replaced
}

// Get returns the display value for a row key.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok && v != ""
}

// Len returns the number of stored rows.
func (t *Table) Len() int {
	return len(t.keys)
}

// Keys returns row keys in file order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName returns the table file name for an entity and language, e.g. Item_JP.csv.
func FileName(entity string, l lang.Language) string {
	if entity == "" {
		entity = DefaultEntity
	}
	return entity + "_" + l.Suffix() + ".csv"
}

// Path returns the table path inside dir.
func Path(dir, entity string, l lang.Language) string {
	return filepath.Join(dir, FileName(entity, l))
}

// LoadOptions selects which table to read and how.
type LoadOptions struct {
	Dir    string
	Entity string
	Lang   lang.Language
	// Column is the value column name, e.g. "Singular" or "Name".
	Column string
	Layout Layout
}

// Load reads the table file for opts.Lang. A missing file yields an error
// wrapping ErrMissingLanguage. Rows too short to hold the key and value
// columns are skipped with a warning.
func Load(opts LoadOptions, log *logging.Logger) (*Table, error) {
	if !opts.Lang.Valid() {
		return nil, fmt.Errorf("%w: no language selected", lang.ErrUnknown)
	}
	path := Path(opts.Dir, opts.Entity, opts.Lang)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s: %s", ErrMissingLanguage, opts.Lang, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f, opts, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Parse reads a table from r. The UTF-8 byte order mark, if present, is dropped.
func Parse(r io.Reader, opts LoadOptions, log *logging.Logger) (*Table, error) {
	if opts.Layout.HeaderRows == 0 {
		opts.Layout = LayoutSaint
	}
	if opts.Entity == "" {
		opts.Entity = DefaultEntity
	}

	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header := make([][]string, 0, opts.Layout.HeaderRows)
	for len(header) < opts.Layout.HeaderRows {
		row, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("header: expected %d rows, got %d", opts.Layout.HeaderRows, len(header))
			}
			return nil, fmt.Errorf("header: %w", err)
		}
		header = append(header, row)
	}

	keyIdx := columnIndex(header[opts.Layout.KeyRow], opts.Layout.KeyColumn)
	if keyIdx < 0 {
		return nil, fmt.Errorf("%w: key column %q", ErrColumnNotFound, opts.Layout.KeyColumn)
	}
	valIdx := columnIndex(header[opts.Layout.NameRow], opts.Column)
	if valIdx < 0 {
		return nil, fmt.Errorf("%w: value column %q", ErrColumnNotFound, opts.Column)
	}
	need := max(keyIdx, valIdx)

	t := New(opts.Lang, opts.Column)
	t.Entity = opts.Entity

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.Warnf("%s_%s line %d: skipping malformed row: %v", t.Entity, opts.Lang.Suffix(), perr.StartLine, perr.Err)
				continue
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(row) <= need {
			log.Warnf("%s_%s line %d: skipping row with %d columns (need %d)", t.Entity, opts.Lang.Suffix(), line, len(row), need+1)
			continue
		}

		key := strings.Trim(row[keyIdx], `"`)
		value := strings.Trim(row[valIdx], `"`)
		if t.Set(key, value) {
			log.Warnf("%s_%s line %d: duplicate key %q, keeping the later row", t.Entity, opts.Lang.Suffix(), line, key)
		}
	}

	return t, nil
}

func columnIndex(row []string, name string) int {
	for i, col := range row {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}
