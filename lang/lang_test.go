package lang

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Language
	}{
		{in: "en", want: EN},
		{in: " JP ", want: JP},
		{in: "ja", want: JP},
		{in: "De", want: DE},
		{in: "fr", want: FR},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "es", "english", "zz"} {
		if _, err := Parse(bad); !errors.Is(err, ErrUnknown) {
			t.Fatalf("Parse(%q) error = %v, want ErrUnknown", bad, err)
		}
	}
}

func TestMetadata(t *testing.T) {
	if got := JP.Suffix(); got != "JP" {
		t.Fatalf("JP.Suffix() = %q, want JP", got)
	}
	if got := JP.Tag().String(); got != "ja" {
		t.Fatalf("JP.Tag() = %q, want ja", got)
	}
	if got := JP.Name(); got != "日本語" {
		t.Fatalf("JP.Name() = %q, want 日本語", got)
	}
	if got := DE.Name(); got != "Deutsch" {
		t.Fatalf("DE.Name() = %q, want Deutsch", got)
	}

	var zero Language
	if zero.Valid() {
		t.Fatal("zero Language should be invalid")
	}
	if zero.String() != "" || zero.Label() != "?" {
		t.Fatalf("zero Language String/Label = %q/%q", zero.String(), zero.Label())
	}
	if _, err := zero.MarshalText(); err == nil {
		t.Fatal("MarshalText on zero Language should fail")
	}
}

func TestFlagValueRejectsUnknown(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	src := EN
	fs.Var(&src, "src", "source language")

	if err := fs.Parse([]string{"--src", "fr"}); err != nil {
		t.Fatalf("Parse(--src fr) error: %v", err)
	}
	if src != FR {
		t.Fatalf("src = %v, want fr", src)
	}

	if err := fs.Parse([]string{"--src", "kr"}); err == nil {
		t.Fatal("Parse(--src kr) should fail")
	}
	if src != FR {
		t.Fatalf("src changed after rejected value: %v", src)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var doc struct {
		Src Language `yaml:"src"`
	}
	if err := yaml.Unmarshal([]byte("src: jp\n"), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal error: %v", err)
	}
	if doc.Src != JP {
		t.Fatalf("src = %v, want jp", doc.Src)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("yaml.Marshal error: %v", err)
	}
	if string(out) != "src: jp\n" {
		t.Fatalf("yaml.Marshal = %q", out)
	}

	if err := yaml.Unmarshal([]byte("src: kr\n"), &doc); err == nil {
		t.Fatal("yaml.Unmarshal(kr) should fail")
	}
}
