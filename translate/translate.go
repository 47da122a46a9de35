// Package translate fills PO records from lookup tables: the record's text is
// normalized, resolved to a row key through the source language's reverse
// index, and replaced by the target language's value for that key.
package translate

import (
	"fmt"
	"io"
	"time"

	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/logging"
	"github.com/minios-linux/poreplace/pofile"
	"github.com/minios-linux/poreplace/table"
)

// ---------------------------------------------------------------------------
// Results and statistics
// ---------------------------------------------------------------------------

// Reason explains why a record was left unchanged.
type Reason string

const (
	// ReasonNotIndexed: the normalized text is not a value of the source table.
	ReasonNotIndexed Reason = "not-indexed"
	// ReasonNoTarget: the row key has no value in the target table.
	ReasonNoTarget Reason = "no-target"
	// ReasonAlreadyTarget: the msgstr is already a target table value.
	ReasonAlreadyTarget Reason = "already-target"
)

// Result is the outcome of translating one record.
type Result struct {
	Replaced bool
	// Key is the row key, when the text was found in the reverse index.
	Key  string
	From string
	To   string
	// Reason is set when Replaced is false.
	Reason Reason
}

// Miss describes an unmatched record.
type Miss struct {
	Line   int    `yaml:"line"`
	ID     string `yaml:"id"`
	Value  string `yaml:"value"`
	Key    string `yaml:"key,omitempty"`
	Reason Reason `yaml:"reason"`
}

// Stats accumulates per-run counters. Replaced + Unmatched == Total.
type Stats struct {
	Total     int
	Replaced  int
	Unmatched int
	// AlreadyTranslated counts unmatched entries whose msgstr is already
	// in the target language. They are included in Unmatched.
	AlreadyTranslated int
	// Passthrough counts blocks copied without being treated as records.
	Passthrough int
	// Malformed counts blocks that failed to parse and were copied verbatim.
	Malformed int
	// Missing lists unmatched records in file order.
	Missing []Miss
	Elapsed time.Duration
}

func (s *Stats) add(rec *pofile.Record, res Result) {
	s.Total++
	if res.Replaced {
		s.Replaced++
		return
	}
	s.Unmatched++
	if res.Reason == ReasonAlreadyTarget {
		s.AlreadyTranslated++
	}
	s.Missing = append(s.Missing, Miss{
		Line:   rec.Line,
		ID:     rec.Identifier(),
		Value:  rec.Value(),
		Key:    res.Key,
		Reason: res.Reason,
	})
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Translator resolves record text through a reverse index into a target table.
type Translator struct {
	index  *table.ReverseIndex
	target *table.Table
	log    *logging.Logger
	// translated holds the normalized target values.
	translated map[string]bool
}

// New returns a Translator. index must be built from the source language
// table and target must be a table of the same entity.
func New(index *table.ReverseIndex, target *table.Table, log *logging.Logger) *Translator {
	translated := make(map[string]bool, target.Len())
	for _, key := range target.Keys() {
		v, _ := target.Get(key)
		if norm := table.Normalize(v); norm != "" {
			translated[norm] = true
		}
	}
	return &Translator{index: index, target: target, log: log, translated: translated}
}

// Source returns the source language.
func (t *Translator) Source() lang.Language {
	return t.index.Source.Lang
}

// Target returns the target language.
func (t *Translator) Target() lang.Language {
	return t.target.Lang
}

// Translate looks up rec and replaces its msgstr when the target table has
// a value. Unmatched records are not modified.
func (t *Translator) Translate(rec *pofile.Record) Result {
	from := rec.Value()
	key, ok := t.index.Lookup(from)
	if !ok {
		if rec.MsgStr != "" && t.translated[table.Normalize(rec.MsgStr)] {
			return Result{From: from, Reason: ReasonAlreadyTarget}
		}
		return Result{From: from, Reason: ReasonNotIndexed}
	}
	to, ok := t.target.Get(key)
	if !ok {
		return Result{Key: key, From: from, Reason: ReasonNoTarget}
	}
	rec.SetMsgStr(to)
	return Result{Replaced: true, Key: key, From: from, To: to}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Options controls a Run.
type Options struct {
	// OnlyEmpty leaves entries with an existing msgstr alone.
	OnlyEmpty bool
	// Annotate writes a translator comment naming the source text and row
	// key in front of each replaced entry.
	Annotate bool
}

// Run streams a PO file from r to w, translating every record. Passthrough
// and malformed blocks are copied unchanged; malformed ones are logged.
// Errors are returned only for I/O failures.
func (t *Translator) Run(r io.Reader, w io.Writer, opts Options) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	reader := pofile.NewReader(r)
	reader.OnlyEmpty = opts.OnlyEmpty
	writer := pofile.NewWriter(w)

	for {
		b, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch b.Kind {
		case pofile.Malformed:
			stats.Malformed++
			t.log.Warnf("Passing malformed entry through unchanged: %v", b.Err)
		case pofile.Passthrough:
			stats.Passthrough++
		case pofile.RecordBlock:
			rec := b.Record
			res := t.Translate(rec)
			stats.add(rec, res)
			t.logResult(rec, res)
			if res.Replaced && opts.Annotate {
				comment := fmt.Sprintf("poreplace: %s %q (key %s)", t.Source(), res.From, res.Key)
				if !b.HasComment(comment) {
					rec.Comment = comment
				}
			}
		}

		if err := writer.Write(b); err != nil {
			return nil, fmt.Errorf("writing output: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

func (t *Translator) logResult(rec *pofile.Record, res Result) {
	switch {
	case res.Replaced:
		t.log.Infof("Replaced '%s'→'%s' (ID=%s)", res.From, res.To, res.Key)
	case res.Reason == ReasonAlreadyTarget:
		t.log.Debugf("line %d: '%s' is already %s text", rec.Line, res.From, t.Target())
	case res.Reason == ReasonNoTarget:
		t.log.Warnf("line %d: no %s text for '%s' (ID=%s)", rec.Line, t.Target(), res.From, res.Key)
	default:
		t.log.Warnf("line %d: no mapping for '%s'", rec.Line, res.From)
	}
}
