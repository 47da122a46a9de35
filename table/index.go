package table

import "github.com/minios-linux/poreplace/logging"

// ReverseIndex maps normalized display text back to the row key it came from.
type ReverseIndex struct {
	Source *Table

	keys       map[string]string
	collisions int
}

// NewReverseIndex indexes every value of src in row order. Values that
// normalize to "" are not indexed. When two rows normalize to the same text
// the later row wins; each such collision is counted and logged at debug level.
func NewReverseIndex(src *Table, log *logging.Logger) *ReverseIndex {
	idx := &ReverseIndex{
		Source: src,
		keys:   make(map[string]string, src.Len()),
	}
	for _, key := range src.keys {
		norm := Normalize(src.values[key])
		if norm == "" {
			continue
		}
		if prev, ok := idx.keys[norm]; ok && prev != key {
			idx.collisions++
			log.Debugf("%s index: %q maps to keys %s and %s, keeping %s", src.Lang, norm, prev, key, key)
		}
		idx.keys[norm] = key
	}
	return idx
}

// Lookup normalizes text and returns its row key.
func (idx *ReverseIndex) Lookup(text string) (key string, ok bool) {
	return idx.LookupNormalized(Normalize(text))
}

// LookupNormalized returns the row key for already normalized text.
func (idx *ReverseIndex) LookupNormalized(norm string) (key string, ok bool) {
	if norm == "" {
		return "", false
	}
	key, ok = idx.keys[norm]
	return key, ok
}

// Len returns the number of indexed strings.
func (idx *ReverseIndex) Len() int {
	return len(idx.keys)
}

// Collisions returns how many rows overwrote an earlier row with the same normalized text.
func (idx *ReverseIndex) Collisions() int {
	return idx.collisions
}
