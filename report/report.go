// Package report summarizes a replacement run: a localized summary written
// through the logger and an optional YAML report file.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/poreplace/i18n"
	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/logging"
	"github.com/minios-linux/poreplace/translate"
)

// Version is the report file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Run describes one invocation.
type Run struct {
	ID         string        `yaml:"id"`
	Started    time.Time     `yaml:"started"`
	Source     lang.Language `yaml:"source"`
	Target     lang.Language `yaml:"target"`
	Entity     string        `yaml:"entity"`
	Input      string        `yaml:"input"`
	InputMD5   string        `yaml:"input_md5,omitempty"`
	Output     string        `yaml:"output,omitempty"`
	DryRun     bool          `yaml:"dry_run,omitempty"`
	Tables     []string      `yaml:"tables"`
	Collisions int           `yaml:"index_collisions,omitempty"`
}

// NewRun returns a Run with a fresh id.
func NewRun(src, tgt lang.Language) *Run {
	return &Run{
		ID:      uuid.NewString(),
		Started: time.Now().UTC().Truncate(time.Second),
		Source:  src,
		Target:  tgt,
	}
}

// Counts mirrors translate.Stats in the report file.
type Counts struct {
	Total       int     `yaml:"total"`
	Replaced    int     `yaml:"replaced"`
	Unmatched   int     `yaml:"unmatched"`
	Passthrough int     `yaml:"passthrough"`
	Malformed   int     `yaml:"malformed"`
	Elapsed     float64 `yaml:"elapsed_seconds"`
}

// File is the YAML report document.
type File struct {
	Version   int              `yaml:"version"`
	Run       Run              `yaml:"run"`
	Counts    Counts           `yaml:"counts"`
	Unmatched []translate.Miss `yaml:"unmatched"`
}

// ---------------------------------------------------------------------------
// Building, loading and saving
// ---------------------------------------------------------------------------

// New builds a report file from a finished run.
func New(run *Run, stats *translate.Stats) *File {
	f := &File{
		Version: Version,
		Run:     *run,
		Counts: Counts{
			Total:       stats.Total,
			Replaced:    stats.Replaced,
			Unmatched:   stats.Unmatched,
			Passthrough: stats.Passthrough,
			Malformed:   stats.Malformed,
			Elapsed:     stats.Elapsed.Seconds(),
		},
		Unmatched: stats.Missing,
	}
	if f.Unmatched == nil {
		f.Unmatched = []translate.Miss{}
	}
	return f
}

// Load reads a report file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if f.Version > Version {
		return nil, fmt.Errorf("%s: unsupported report version %d", path, f.Version)
	}
	return f, nil
}

// Save writes the report to path.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary logs the run totals followed by every unmatched entry. Entries
// already in the target language are counted but not listed.
func Summary(log *logging.Logger, run *Run, stats *translate.Stats) {
	log.Infof(i18n.T("Summary %s → %s (run %s)"), run.Source, run.Target, run.ID)
	log.Infof(i18n.T("  Entries:   %d"), stats.Total)
	log.Infof(i18n.T("  Replaced:  %d"), stats.Replaced)
	log.Infof(i18n.T("  Unmatched: %d"), stats.Unmatched)
	if stats.Malformed > 0 {
		log.Warnf(i18n.N("  %d malformed entry copied unchanged", "  %d malformed entries copied unchanged", stats.Malformed), stats.Malformed)
	}
	if stats.AlreadyTranslated > 0 {
		log.Infof(i18n.N("  %d entry already translated", "  %d entries already translated", stats.AlreadyTranslated), stats.AlreadyTranslated)
	}
	log.Infof(i18n.T("  Elapsed:   %s"), stats.Elapsed.Round(time.Millisecond))

	missing := stats.Unmatched - stats.AlreadyTranslated
	if missing == 0 {
		return
	}
	log.Warnf(i18n.N("%d unmatched entry:", "%d unmatched entries:", missing), missing)
	for _, m := range stats.Missing {
		if m.Reason == translate.ReasonAlreadyTarget {
			continue
		}
		log.Warnf("  line %d: %s", m.Line, m.ID)
	}
}
