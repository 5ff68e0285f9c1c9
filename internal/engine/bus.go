package engine

import (
	"log/slog"
	"sync"

	"github.com/statuspulse/statuspulse/internal/detect"
)

// subBufSize is the per-subscriber event buffer depth.
const subBufSize = 16

// Subscription is one listener's view of the transition event stream.
type Subscription struct {
	// C delivers each transition event exactly once, in emission order.
	C <-chan detect.Event

	cancel func()
	once   sync.Once
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() { s.once.Do(s.cancel) }

// bus fans transition events out to subscribers.
type bus struct {
	mu   sync.Mutex
	subs map[chan detect.Event]struct{}
}

func newBus() *bus {
	return &bus{subs: make(map[chan detect.Event]struct{})}
}

func (b *bus) subscribe() *Subscription {
	ch := make(chan detect.Event, subBufSize)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return &Subscription{
		C: ch,
		cancel: func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		},
	}
}

// publish delivers ev to every subscriber without blocking the refresh
// path. A subscriber whose buffer is full misses the event; transition
// events also land in the snapshot state, so a slow consumer can resync.
func (b *bus) publish(ev detect.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("engine: subscriber buffer full, dropping event",
				"service", ev.Service, "type", ev.Type)
		}
	}
}
