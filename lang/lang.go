// Package lang defines the closed set of game languages poreplace can read
// tables for, along with their file suffixes and display metadata.
package lang

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknown is returned when a language code is not one of the supported codes.
var ErrUnknown = errors.New("unknown language")

// Language is one of the supported table languages. The zero value is invalid.
type Language uint8

const (
	invalid Language = iota
	EN
	JP
	DE
	FR
)

// Meta describes a language.
type Meta struct {
	// Code is the command-line selector, e.g. "jp".
	Code string
	// Suffix is the table file suffix, e.g. "JP" for Item_JP.csv.
	Suffix string
	// Tag is the BCP 47 tag. Game data uses "jp" where BCP 47 uses "ja".
	Tag  language.Tag
	Flag string
}

// registry is indexed by Language.
var registry = [...]Meta{
	invalid: {},
	EN:      {Code: "en", Suffix: "EN", Tag: language.English, Flag: "🇺🇸"},
	JP:      {Code: "jp", Suffix: "JP", Tag: language.Japanese, Flag: "🇯🇵"},
	DE:      {Code: "de", Suffix: "DE", Tag: language.German, Flag: "🇩🇪"},
	FR:      {Code: "fr", Suffix: "FR", Tag: language.French, Flag: "🇫🇷"},
}

// All returns every supported language in selector order.
func All() []Language {
	return []Language{EN, JP, DE, FR}
}

// Codes returns the selector codes of all supported languages.
func Codes() []string {
	all := All()
	codes := make([]string, len(all))
	for i, l := range all {
		codes[i] = l.String()
	}
	return codes
}

// Parse resolves a selector code. Input is case-insensitive and may carry
// surrounding whitespace; "ja" is accepted as an alias of "jp".
func Parse(code string) (Language, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "ja" {
		c = "jp"
	}
	for _, l := range All() {
		if registry[l].Code == c {
			return l, nil
		}
	}
	return invalid, fmt.Errorf("%w %q (valid: %s)", ErrUnknown, code, strings.Join(Codes(), ", "))
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(code string) Language {
	l, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return l
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l > invalid && int(l) < len(registry)
}

// Meta returns the language metadata, or the zero Meta for invalid values.
func (l Language) Meta() Meta {
	if !l.Valid() {
		return Meta{}
	}
	return registry[l]
}

func (l Language) String() string {
	if !l.Valid() {
		return ""
	}
	return registry[l].Code
}

// Suffix returns the table file suffix.
func (l Language) Suffix() string { return l.Meta().Suffix }

// Tag returns the BCP 47 tag.
func (l Language) Tag() language.Tag { return l.Meta().Tag }

// Name returns the language's name in the language itself, e.g. "日本語".
func (l Language) Name() string {
	if !l.Valid() {
		return ""
	}
	return display.Self.Name(l.Tag())
}

// Label returns "<flag> <code> (<name>)" for log and status output.
func (l Language) Label() string {
	if !l.Valid() {
		return "?"
	}
	return fmt.Sprintf("%s %s (%s)", l.Meta().Flag, l.String(), l.Name())
}

// Set implements pflag.Value.
func (l *Language) Set(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Type implements pflag.Value.
func (l *Language) Type() string { return "lang" }

// UnmarshalText lets languages appear in YAML configuration.
func (l *Language) UnmarshalText(text []byte) error {
	return l.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(l))
	}
	return []byte(l.String()), nil
}

var _ pflag.Value = (*Language)(nil)
