package reconcile

import (
	"slices"
	"strings"
	"sync"
)

// Entry is one row of a sidebar list.
type Entry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Counts is the locally held list of one Kind, seeded from storage and
// adjusted by events afterwards.
type Counts struct {
	kind Kind

	mu      sync.Mutex
	entries []Entry
}

// NewCounts creates a list of the given kind from server-computed counts.
func NewCounts(kind Kind, seed []Entry) *Counts {
	c := &Counts{kind: kind}
	c.Reseed(seed)
	return c
}

// Apply adjusts the list for e and reports whether anything changed.
// Events for another kind, and deltas for IDs not in the list, are dropped.
func (c *Counts) Apply(e Event) bool {
	if e.Kind != c.kind {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(e.ID)

	switch e.Op {
	case OpDelta:
		if idx < 0 {
			return false
		}
		c.entries[idx].Count += int(e.Sign)
		return true

	case OpAdd:
		if idx >= 0 {
			return false
		}
		c.entries = append(c.entries, Entry{ID: e.ID, Name: e.Name})
		sortEntries(c.entries)
		return true

	case OpRename:
		if idx < 0 || c.entries[idx].Name == e.Name {
			return false
		}
		c.entries[idx].Name = e.Name
		sortEntries(c.entries)
		return true

	case OpRemove:
		if idx < 0 {
			return false
		}
		c.entries = slices.Delete(c.entries, idx, idx+1)
		return true
	}

	return false
}

// Reseed replaces the local list, discarding every adjustment made so far.
func (c *Counts) Reseed(seed []Entry) {
	entries := slices.Clone(seed)
	if entries == nil {
		entries = []Entry{}
	}
	sortEntries(entries)

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// Snapshot returns a copy of the current list.
func (c *Counts) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// Get returns the entry with the given ID.
func (c *Counts) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(id); idx >= 0 {
		return c.entries[idx], true
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (c *Counts) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Counts) indexOf(id string) int {
	return slices.IndexFunc(c.entries, func(e Entry) bool {
		return e.ID == id
	})
}

// sortEntries orders by name the way SQLite's NOCASE collation does, which
// folds ASCII letters only.
func sortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(foldASCII(a.Name), foldASCII(b.Name))
	})
}

func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}
