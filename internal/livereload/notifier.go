package livereload

import (
	"sync"
	"time"
)

// Event tells connected browsers to reload.
type Event struct {
	Reason string
	At     time.Time
}

// notifier fans reload events out to subscribed streams. Each subscriber
// holds at most one pending event; a newer event replaces an unread one.
type notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[chan Event]struct{})}
}

// subscribe registers a listener. Callers must unsubscribe.
func (n *notifier) subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

func (n *notifier) unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
}

func (n *notifier) count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// broadcast never blocks.
func (n *notifier) broadcast(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Full: drop the stale event and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
