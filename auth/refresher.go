package auth

import (
	"sync"
	"time"
)

// Ticker is the periodic timer behind the token refresh loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker is the TickerFunc backed by time.Ticker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// refresher runs tick on every timer fire. At most one timer is active:
// start always stops the previous one first.
type refresher struct {
	mu        sync.Mutex
	newTicker TickerFunc
	interval  time.Duration
	tick      func()

	ticker Ticker
	stopCh chan struct{}
}

func (r *refresher) start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	ticker := r.newTicker(r.interval)
	stopCh := make(chan struct{})
	r.ticker = ticker
	r.stopCh = stopCh

	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C():
				// A stop may race with a fire that was already delivered.
				select {
				case <-stopCh:
					return
				default:
				}
				r.tick()
			}
		}
	}()
}

func (r *refresher) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *refresher) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticker != nil
}

// stopLocked does not wait for the loop to exit: tick may itself stop the
// refresher (a failed refresh signs out).
func (r *refresher) stopLocked() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stopCh)
	r.ticker = nil
	r.stopCh = nil
}
