// Package pairs holds the static bidirectional mapping between base unit
// types and their linked (coordinated) variants. The table is the sole
// source of truth for "is this type upgradable" and "is this type a
// downgrade target". It is rebuilt only on init and configuration change
// and read-only in between.
package pairs

import "sync"

// Pair maps one base type to its linked variant.
type Pair struct {
	Base   string `json:"base" mapstructure:"base"`
	Linked string `json:"linked" mapstructure:"linked"`
}

// Table is the bidirectional type-pair lookup.
type Table struct {
	mu       sync.RWMutex
	toLinked map[string]string
	toBase   map[string]string
}

// NewTable creates an empty table. An empty table is valid: the classifier
// simply finds no candidates.
func NewTable() *Table {
	t := &Table{}
	t.Rebuild(nil)
	return t
}

// Rebuild replaces the table contents from configuration rows. Rows with an
// empty side and duplicate mappings are dropped; the first mapping for a
// type wins on both sides.
func (t *Table) Rebuild(rows []Pair) {
	toLinked := make(map[string]string, len(rows))
	toBase := make(map[string]string, len(rows))
	for _, p := range rows {
		if p.Base == "" || p.Linked == "" {
			continue
		}
		if _, dup := toLinked[p.Base]; dup {
			continue
		}
		if _, dup := toBase[p.Linked]; dup {
			continue
		}
		toLinked[p.Base] = p.Linked
		toBase[p.Linked] = p.Base
	}
	t.mu.Lock()
	t.toLinked = toLinked
	t.toBase = toBase
	t.mu.Unlock()
}

// LinkedFor returns the linked variant of a base type.
func (t *Table) LinkedFor(base string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	linked, ok := t.toLinked[base]
	return linked, ok
}

// BaseFor returns the base type of a linked variant.
func (t *Table) BaseFor(linked string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	base, ok := t.toBase[linked]
	return base, ok
}

// IsLinked reports whether the type is a linked variant.
func (t *Table) IsLinked(typ string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.toBase[typ]
	return ok
}

// Len returns the number of pairs in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.toLinked)
}
