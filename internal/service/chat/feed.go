package chat

import (
	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	"chatlink/pkg/metrics"
)

// Feed is a live stream of conversation snapshots. Each update carries the
// whole conversation re-decoded from scratch; a slow consumer sees only the
// latest state, never a backlog of stale intermediates.
type Feed struct {
	ch  chan *domain.ConversationSnapshot
	sub *rtdb.Subscription
}

func newFeed(sub *rtdb.Subscription) *Feed {
	f := &Feed{
		ch:  make(chan *domain.ConversationSnapshot, 1),
		sub: sub,
	}
	go f.pump()
	return f
}

// Snapshots returns the snapshot channel; it closes when the feed is
// closed or the underlying subscription ends.
func (f *Feed) Snapshots() <-chan *domain.ConversationSnapshot {
	return f.ch
}

// Close detaches the underlying listener. Required on conversation-view
// teardown; after Close no further snapshots are delivered.
func (f *Feed) Close() {
	f.sub.Close()
}

// pump is the only sender on f.ch, so closing it here is race-free.
func (f *Feed) pump() {
	defer close(f.ch)
	for raw := range f.sub.Snapshots() {
		snap, err := domain.DecodeConversation(raw)
		if err != nil {
			continue
		}
		metrics.Chat().SnapshotsDelivered.Inc()
		f.deliver(snap)
	}
}

func (f *Feed) deliver(snap *domain.ConversationSnapshot) {
	for {
		select {
		case f.ch <- snap:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}
