// Package i18n translates poreplace's own user-facing strings.
//
// It wraps gotext to provide T() and N(). Catalogs are embedded in the
// binary and the closest one to the user's locale is picked by Init.
//
// Usage:
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.N("%d unmatched entry", "%d unmatched entries", n))
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// Directory structure: locales/{lang}/LC_MESSAGES/poreplace.po
//
//go:embed all:locales
var locales embed.FS

const domain = "poreplace"

var (
	po     *gotext.Locale
	active = "en"
)

// Init loads the catalog closest to lang. If lang is empty, it is detected
// from the environment following GNU gettext's order. Unsupported locales
// fall back to the untranslated English strings.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	active = match(lang)
	if active == "en" {
		po = nil
		return
	}

	po = gotext.NewLocaleFSWithPath(active, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Active returns the catalog selected by Init, "en" when untranslated.
func Active() string {
	return active
}

// T translates a string, returning msgid unchanged when no translation exists.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// available lists the embedded catalogs, English first.
func available() []string {
	codes := []string{"en"}
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return codes
	}
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	return codes
}

// match maps a POSIX locale name such as "ja_JP" to the closest embedded
// catalog.
func match(lang string) string {
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return "en"
	}
	codes := available()
	tags := make([]language.Tag, len(codes))
	for i, c := range codes {
		tags[i] = language.Make(c)
	}
	_, idx, conf := language.NewMatcher(tags).Match(tag)
	if conf == language.No {
		return "en"
	}
	return codes[idx]
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			// LANGUAGE can be a colon-separated list
			if env == "LANGUAGE" {
				val, _, _ = strings.Cut(val, ":")
			}
			// "ja_JP.UTF-8" -> "ja_JP"
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
