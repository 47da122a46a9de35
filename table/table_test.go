package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/logging"
)

const itemEN = "\ufeffkey,0,1,2\n" +
	"#,Singular,Plural,Name\n" +
	"int32,str,str,str\n" +
	"1234,fire shard,fire shards,Fire Shard\n" +
	"1235,\"ice shard\",ice shards,Ice Shard\n" +
	"1236\n" +
	"1237,,,\n" +
	"1238,<Emphasis>wind shard</Emphasis>,wind shards,Wind Shard\n"

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadSaintLayout(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "Item_EN.csv", itemEN)

	core, logs := observer.New(zapcore.DebugLevel)
	tbl, err := Load(LoadOptions{Dir: dir, Lang: lang.EN, Column: "Singular", Layout: LayoutSaint}, logging.Wrap(core))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Item_EN.csv"), tbl.Path)
	assert.Equal(t, []string{"1234", "1235", "1238"}, tbl.Keys())

	v, ok := tbl.Get("1235")
	assert.True(t, ok)
	assert.Equal(t, "ice shard", v)

	_, ok = tbl.Get("1237")
	assert.False(t, ok, "rows with empty values are not stored")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "line 6")
	assert.Contains(t, warnings[0].Message, "Item_EN")
}

func TestLoadNameColumnAndSimpleLayout(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "Item_JP.csv", "key,Name\n1234,ファイアシャード\n1234,ファイアシャード改\n")

	core, logs := observer.New(zapcore.InfoLevel)
	tbl, err := Load(LoadOptions{Dir: dir, Lang: lang.JP, Column: "Name", Layout: LayoutSimple}, logging.Wrap(core))
	require.NoError(t, err)

	v, ok := tbl.Get("1234")
	require.True(t, ok)
	assert.Equal(t, "ファイアシャード改", v, "duplicate keys keep the later row")
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("duplicate key").Len())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(LoadOptions{Dir: dir, Lang: lang.DE, Column: "Name"}, logging.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingLanguage))
	assert.Contains(t, err.Error(), "Item_DE.csv")

	writeTable(t, dir, "Item_FR.csv", itemEN)
	_, err = Load(LoadOptions{Dir: dir, Lang: lang.FR, Column: "Nom"}, logging.Nop())
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	writeTable(t, dir, "Item_EN.csv", "key,0\n")
	_, err = Load(LoadOptions{Dir: dir, Lang: lang.EN, Column: "Name"}, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 rows")

	_, err = Load(LoadOptions{Dir: dir, Column: "Name"}, logging.Nop())
	assert.True(t, errors.Is(err, lang.ErrUnknown))
}

func TestFileNameAndLayoutByName(t *testing.T) {
	assert.Equal(t, "Item_JP.csv", FileName("", lang.JP))
	assert.Equal(t, "Action_DE.csv", FileName("Action", lang.DE))

	l, err := LayoutByName("Simple")
	require.NoError(t, err)
	assert.Equal(t, LayoutSimple, l)

	l, err = LayoutByName("")
	require.NoError(t, err)
	assert.Equal(t, LayoutSaint, l)

	_, err = LayoutByName("xlsx")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{in: "Fire Shard", want: "fire shard"},
		{in: "<Emphasis>Fire Shard</Emphasis>", want: "fire shard"},
		{in: "  <i>Fire</i> Shard  ", want: "fire shard"},
		{in: "<<b>i>Nested</i>", want: "nested"},
		{in: "Straße", want: "strasse"},
		{in: "ファイアシャード", want: "ファイアシャード"},
		{in: "<Emphasis></Emphasis>", want: ""},
		{in: "a < b > c", want: "a < b > c"},
		{in: `<Emphasis attr="x">Keep</Emphasis>`, want: `<emphasis attr="x">keep`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Fire Shard", "<Emphasis>Fire Shard</Emphasis>", "  <<b>i>x</i> ",
		"ΣΊΣΥΦΟΣ", "Straße", "\tMixed <B>Case</b>\n", "<K>", "",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestReverseIndex(t *testing.T) {
	src := New(lang.EN, "Singular")
	src.Set("1", "Fire Shard")
	src.Set("2", "<Emphasis>Ice Shard</Emphasis>")
	src.Set("3", "FIRE SHARD")
	src.Set("4", "<i></i>")

	core, logs := observer.New(zapcore.DebugLevel)
	idx := NewReverseIndex(src, logging.Wrap(core))

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 1, idx.Collisions())
	require.Equal(t, 1, logs.Len())
	assert.True(t, strings.Contains(logs.All()[0].Message, "keeping 3"))

	key, ok := idx.Lookup("fire shard")
	require.True(t, ok)
	assert.Equal(t, "3", key, "last write wins")

	key, ok = idx.Lookup("<Emphasis>ice shard</Emphasis>")
	require.True(t, ok)
	assert.Equal(t, "2", key)

	_, ok = idx.Lookup("Unknown Item")
	assert.False(t, ok)
	_, ok = idx.Lookup("   ")
	assert.False(t, ok)
}
