package snapshot

import (
	"sync"
	"time"
)

// Change announces a snapshot swap to stream listeners. It carries the new
// ETag plus the published-form count and swap time, so a listener can log or
// surface what changed without re-loading the snapshot.
type Change struct {
	ETag      string
	Forms     int
	UpdatedAt time.Time
}

var (
	mu   sync.Mutex
	subs = make(map[chan Change]struct{})
)

// Subscribe registers a change listener and returns its channel with an
// unsubscribe func. The channel holds one pending change; a listener that
// falls behind keeps the change it has and misses intermediate swaps rather
// than blocking Update.
func Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)
	mu.Lock()
	subs[ch] = struct{}{}
	mu.Unlock()

	unsub := func() {
		mu.Lock()
		delete(subs, ch)
		close(ch)
		mu.Unlock()
	}
	return ch, unsub
}

// announce fans a change out to every listener without blocking on any.
func announce(c Change) {
	mu.Lock()
	for ch := range subs {
		select {
		case ch <- c:
		default:
		}
	}
	mu.Unlock()
}
