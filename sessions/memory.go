package sessions

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is in-process storage shared by any number of MemoryStore
// views. Each view behaves like a browser tab: writes through one view are
// reported to the listeners of every other view.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	views  map[string]*MemoryStore
}

// NewMemoryBackend creates empty shared storage.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
		views:  make(map[string]*MemoryStore),
	}
}

// NewStore opens a new view on the backend.
func (b *MemoryBackend) NewStore() *MemoryStore {
	s := &MemoryStore{
		backend:   b,
		id:        uuid.New().String(),
		listeners: make(map[int]Listener),
	}
	b.mu.Lock()
	b.views[s.id] = s
	b.mu.Unlock()
	return s
}

// NewMemoryStore returns a single view on private storage.
func NewMemoryStore() *MemoryStore {
	return NewMemoryBackend().NewStore()
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is one view of a MemoryBackend.
type MemoryStore struct {
	backend *MemoryBackend
	id      string

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// ID identifies the view.
func (s *MemoryStore) ID() string {
	return s.id
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	v, ok := s.backend.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(entries ...Entry) error {
	s.backend.mu.Lock()
	changes := make([]Change, 0, len(entries))
	for _, e := range entries {
		old, existed := s.backend.values[e.Key]
		s.backend.values[e.Key] = e.Value
		if existed && old == e.Value {
			continue
		}
		changes = append(changes, Change{Key: e.Key, OldValue: old, NewValue: e.Value})
	}
	others := s.otherViewsLocked()
	s.backend.mu.Unlock()

	deliver(others, changes)
	return nil
}

func (s *MemoryStore) Clear(keys ...string) error {
	s.backend.mu.Lock()
	changes := make([]Change, 0, len(keys))
	for _, k := range keys {
		old, existed := s.backend.values[k]
		if !existed {
			continue
		}
		delete(s.backend.values, k)
		changes = append(changes, Change{Key: k, OldValue: old, Removed: true})
	}
	others := s.otherViewsLocked()
	s.backend.mu.Unlock()

	deliver(others, changes)
	return nil
}

func (s *MemoryStore) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close detaches the view from the backend; its listeners stop receiving changes.
func (s *MemoryStore) Close() {
	s.backend.mu.Lock()
	delete(s.backend.views, s.id)
	s.backend.mu.Unlock()
}

func (s *MemoryStore) otherViewsLocked() []*MemoryStore {
	others := make([]*MemoryStore, 0, len(s.backend.views))
	for id, v := range s.backend.views {
		if id != s.id {
			others = append(others, v)
		}
	}
	return others
}

func (s *MemoryStore) snapshotListeners() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	return ls
}

func deliver(views []*MemoryStore, changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, v := range views {
		listeners := v.snapshotListeners()
		for _, c := range changes {
			for _, l := range listeners {
				l(c)
			}
		}
	}
}
