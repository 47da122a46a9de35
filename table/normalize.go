package table

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// markupTag matches a simple open or close tag without attributes,
// e.g. <Emphasis> or </Emphasis>.
var markupTag = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*>`)

// Normalize turns display text into a lookup key: case folded, markup
// tags removed, surrounding whitespace trimmed. Normalize(Normalize(s)) ==
// Normalize(s).
func Normalize(s string) string {
	s = cases.Fold().String(s)
	// Removing one tag can expose another ("<<b>i>"), so repeat until stable.
	for {
		stripped := markupTag.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	return strings.TrimSpace(s)
}
