package localgate

import (
	"sync"

	"github.com/internmatch/go-session"
)

const subscriberBuffer = 32

// broadcaster fans session-changed events out to subscribers. Each
// subscriber gets its own buffered channel, so delivery order per
// subscriber matches publish order.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan session.SessionEvent
	nextID int
	logger session.Logger
}

func newBroadcaster(logger session.Logger) *broadcaster {
	return &broadcaster{
		subs:   map[int]chan session.SessionEvent{},
		logger: logger,
	}
}

func (b *broadcaster) subscribe() (<-chan session.SessionEvent, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan session.SessionEvent, subscriberBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
}

func (b *broadcaster) publish(event session.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// A subscriber that stopped draining would otherwise block
			// every auth operation.
			b.logger.Warn("dropping session event for slow subscriber", "subscriber", id, "event", string(event.Type))
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
