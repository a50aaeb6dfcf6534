package content

import "sync"

// MaxTOCLevel is the deepest heading level listed in a table of contents.
const MaxTOCLevel = 3

// Entry is one table of contents line.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// TOC collects headings in document order. Registration is idempotent per
// id: rendering the same document again never adds duplicates, and when two
// headings share an id the first one is kept.
type TOC struct {
	mu      sync.RWMutex
	entries []Entry
	seen    map[string]struct{}
}

func NewTOC() *TOC {
	return &TOC{seen: make(map[string]struct{})}
}

// Register appends e unless its id is already listed. It reports whether e was added.
func (t *TOC) Register(e Entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[e.ID]; ok {
		return false
	}
	t.seen[e.ID] = struct{}{}
	t.entries = append(t.entries, e)
	return true
}

// Entries returns a copy of the registered entries.
func (t *TOC) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *TOC) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.seen[id]
	return ok
}

func (t *TOC) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *TOC) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.seen = make(map[string]struct{})
}
