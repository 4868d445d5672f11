package rtdb

import (
	"context"
	"encoding/json"
	"sync"
)

// Store is the hosted realtime tree the client reads and writes: a
// hierarchical key-value store addressed by slash-separated paths. All of
// the hard delivery logic (fan-out, persistence, conflict handling) lives
// behind this interface; the client layers on top are thin.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get reads the subtree at path once. Absent paths yield "null".
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// Set overwrites the subtree at path. A nil value deletes the subtree.
	Set(ctx context.Context, path string, value any) error

	// Update merges fields into the node at path. A nil field value deletes
	// that field. Only the named fields change; this is the explicit partial
	// update used everywhere instead of whole-object overwrites.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Push appends value under a generated unique child key and returns it.
	Push(ctx context.Context, path string, value any) (string, error)

	// Subscribe opens a live feed for the subtree at path. The current value
	// is delivered immediately, then the full subtree is re-delivered on
	// every change beneath the path. There are no diffs and no ordering
	// promise beyond what the backend happens to provide.
	Subscribe(ctx context.Context, path string) (*Subscription, error)
}

// Subscription is a live full-snapshot feed for one subtree. Close detaches
// the listener; a closed subscription never delivers again. Consumers that
// fall behind lose intermediate snapshots rather than block the store
// (latest wins, which is all a full-snapshot model needs).
type Subscription struct {
	ch     chan json.RawMessage
	done   chan struct{}
	cancel func()

	mu     sync.Mutex
	closed bool
}

const subscriptionBuffer = 8

func newSubscription(cancel func()) *Subscription {
	return &Subscription{
		ch:     make(chan json.RawMessage, subscriptionBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Snapshots returns the snapshot channel. It is closed when the
// subscription is closed or the backing feed ends.
func (s *Subscription) Snapshots() <-chan json.RawMessage {
	return s.ch
}

// Done is closed when the subscription is torn down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the listener. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// deliver hands a snapshot to the consumer without blocking; when the buffer
// is full the oldest pending snapshot is dropped.
func (s *Subscription) deliver(raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- raw:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// watchContext closes the subscription when ctx is cancelled.
func (s *Subscription) watchContext(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}
