// Package notify delivers the payload-less "user data updated" signal.
//
// Receivers never get state with the signal; they re-read the session store.
// Two transports implement Source: Bus for in-process delivery and
// StorageChannel for writes made through another view of the session store.
package notify

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Listener is called once per delivered signal.
type Listener func()

// Source is anything a Listener can subscribe to.
type Source interface {
	Subscribe(listener Listener) (cancel func())
}

var _ Source = (*Bus)(nil)

// Bus delivers signals synchronously: Notify returns after every listener
// registered at call time has run.
type Bus struct {
	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	log       zerolog.Logger
}

// NewBus constructs a Bus. The logger is optional.
func NewBus(logger ...zerolog.Logger) *Bus {
	b := &Bus{
		listeners: make(map[int]Listener),
		log:       zerolog.Nop(),
	}
	if len(logger) > 0 {
		b.log = logger[0]
	}
	return b
}

// Subscribe registers listener and returns its cancel func. Cancel is safe
// to call more than once.
func (b *Bus) Subscribe(listener Listener) func() {
	if b == nil || listener == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	count := len(b.listeners)
	b.mu.Unlock()
	b.log.Debug().Int("subs", count).Msg("notify subscribe")

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Notify fires the signal in registration order.
func (b *Bus) Notify() {
	if b == nil {
		return
	}
	b.mu.Lock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	listeners := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// Len is the number of registered listeners.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Relay forwards every signal from each source into the bus and returns a
// func that detaches all of them.
func (b *Bus) Relay(sources ...Source) func() {
	cancels := make([]func(), 0, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		cancels = append(cancels, src.Subscribe(b.Notify))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Fanout subscribes one listener to several sources at once.
type Fanout []Source

func (f Fanout) Subscribe(listener Listener) func() {
	cancels := make([]func(), 0, len(f))
	for _, src := range f {
		if src == nil {
			continue
		}
		cancels = append(cancels, src.Subscribe(listener))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}
