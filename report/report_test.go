package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/logging"
	"github.com/minios-linux/poreplace/translate"
)

func sampleStats() *translate.Stats {
	return &translate.Stats{
		Total:     3,
		Replaced:  1,
		Unmatched: 2,
		Malformed: 1,
		Missing: []translate.Miss{
			{Line: 13, ID: "Unknown Item", Value: "Unknown Item", Reason: translate.ReasonNotIndexed},
			{Line: 19, ID: "menu|Wind Shard", Value: "Wind Shard", Key: "1236", Reason: translate.ReasonNoTarget},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun(lang.EN, lang.JP)
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, NewRun(lang.EN, lang.JP).ID)
	assert.Equal(t, lang.JP, run.Target)
}

func TestSaveLoad(t *testing.T) {
	run := NewRun(lang.EN, lang.JP)
	run.Entity = "Item"
	run.Input = "items.po"
	run.Output = "items.jp.po"
	run.InputMD5 = "d41d8cd98f00b204e9800998ecf8427e"
	run.Tables = []string{"csv/Item_EN.csv", "csv/Item_JP.csv"}

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, New(run, sampleStats()).Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Version, got.Version)
	assert.Equal(t, *run, got.Run)
	assert.Equal(t, Counts{Total: 3, Replaced: 1, Unmatched: 2, Malformed: 1, Elapsed: 1.5}, got.Counts)
	assert.Equal(t, sampleStats().Missing, got.Unmatched)
}

func TestNewWithoutMisses(t *testing.T) {
	f := New(NewRun(lang.DE, lang.FR), &translate.Stats{Total: 1, Replaced: 1})
	assert.NotNil(t, f.Unmatched)
	assert.Empty(t, f.Unmatched)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Summary(logging.Wrap(core), NewRun(lang.EN, lang.JP), sampleStats())

	assert.Equal(t, 1, logs.FilterMessageSnippet("Replaced:  1").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Unmatched: 2").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("1 malformed entry").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("2 unmatched entries:").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("line 19: menu|Wind Shard").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Elapsed:   1.5s").Len())
}

func TestSummaryCountsAlreadyTranslatedWithoutListing(t *testing.T) {
	stats := sampleStats()
	stats.Total++
	stats.Unmatched++
	stats.AlreadyTranslated = 1
	stats.Missing = append(stats.Missing, translate.Miss{Line: 22, ID: "Fire Shard", Value: "ファイアシャード", Reason: translate.ReasonAlreadyTarget})

	core, logs := observer.New(zapcore.InfoLevel)
	Summary(logging.Wrap(core), NewRun(lang.EN, lang.JP), stats)

	assert.Equal(t, 1, logs.FilterMessageSnippet("1 entry already translated").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("2 unmatched entries:").Len())
	assert.Zero(t, logs.FilterMessageSnippet("line 22").Len())
}
