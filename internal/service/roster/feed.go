package roster

import (
	"chatlink/internal/rtdb"
)

// Feed is a live stream of roster states. As with conversation feeds, a slow
// consumer only ever sees the latest roster, never a backlog.
type Feed struct {
	ch  chan []Contact
	sub *rtdb.Subscription
}

func newFeed(sub *rtdb.Subscription, selfID string) *Feed {
	f := &Feed{
		ch:  make(chan []Contact, 1),
		sub: sub,
	}
	go f.pump(selfID)
	return f
}

// Contacts returns the roster channel; it closes when the feed is closed.
func (f *Feed) Contacts() <-chan []Contact {
	return f.ch
}

// Close detaches the underlying listener.
func (f *Feed) Close() {
	f.sub.Close()
}

func (f *Feed) pump(selfID string) {
	defer close(f.ch)
	for raw := range f.sub.Snapshots() {
		contacts, err := decodeRoster(raw)
		if err != nil {
			continue
		}
		filtered := contacts[:0]
		for _, c := range contacts {
			if c.Key != selfID {
				filtered = append(filtered, c)
			}
		}
		f.deliver(filtered)
	}
}

func (f *Feed) deliver(contacts []Contact) {
	for {
		select {
		case f.ch <- contacts:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}
