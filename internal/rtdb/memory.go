package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process tree store with live subscriptions. It backs
// the emulator and stands in for the hosted backend in tests: constructed
// explicitly and injected, never a package-level singleton.
type MemoryStore struct {
	mu   sync.RWMutex
	root map[string]any
	subs map[*Subscription][]string
}

// NewMemoryStore creates an empty tree.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root: map[string]any{},
		subs: map[*Subscription][]string{},
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(splitPath(path))
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	tree, err := toTree(value)
	if err != nil {
		return err
	}
	segs := splitPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(segs) == 0 {
		if tree == nil {
			s.root = map[string]any{}
		} else {
			m, ok := tree.(map[string]any)
			if !ok {
				return fmt.Errorf("root value must be an object")
			}
			s.root = m
		}
		s.notifyLocked(nil)
		return nil
	}

	parent := s.ensureNodeLocked(segs[:len(segs)-1])
	leaf := segs[len(segs)-1]
	if tree == nil {
		delete(parent, leaf)
	} else {
		parent[leaf] = tree
	}
	s.notifyLocked(segs)
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	segs := splitPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.ensureNodeLocked(segs)
	for key, value := range fields {
		tree, err := toTree(value)
		if err != nil {
			return err
		}
		if tree == nil {
			delete(node, key)
		} else {
			node[key] = tree
		}
	}
	s.notifyLocked(segs)
	return nil
}

// Push implements Store.
func (s *MemoryStore) Push(ctx context.Context, path string, value any) (string, error) {
	tree, err := toTree(value)
	if err != nil {
		return "", err
	}
	segs := splitPath(path)
	key := NewPushID()

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.ensureNodeLocked(segs)
	if tree != nil {
		node[key] = tree
	}
	s.notifyLocked(append(segs, key))
	return key, nil
}

// Subscribe implements Store. The current subtree value is delivered
// immediately, matching the backend's listener semantics the client code
// relies on for its first render.
func (s *MemoryStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	segs := splitPath(path)

	var sub *Subscription
	sub = newSubscription(func() { s.removeSub(sub) })

	s.mu.Lock()
	initial, err := s.snapshotLocked(segs)
	if err != nil {
		s.mu.Unlock()
		sub.Close()
		return nil, err
	}
	// Register and deliver under the lock so a concurrent write cannot queue
	// its snapshot ahead of the initial one. deliver never blocks.
	s.subs[sub] = segs
	sub.deliver(initial)
	s.mu.Unlock()

	sub.watchContext(ctx)
	return sub, nil
}

func (s *MemoryStore) removeSub(sub *Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// lookupLocked walks the tree; callers hold at least a read lock.
func (s *MemoryStore) lookupLocked(segs []string) (any, bool) {
	var cur any = s.root
	for _, seg := range segs {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ensureNodeLocked returns the object node at segs, creating intermediate
// nodes and replacing non-object values along the way.
func (s *MemoryStore) ensureNodeLocked(segs []string) map[string]any {
	cur := s.root
	for _, seg := range segs {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	return cur
}

func (s *MemoryStore) snapshotLocked(segs []string) (json.RawMessage, error) {
	node, ok := s.lookupLocked(segs)
	if !ok {
		return json.RawMessage("null"), nil
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return raw, nil
}

// notifyLocked re-delivers full snapshots to every subscription that can see
// the written path.
func (s *MemoryStore) notifyLocked(wrote []string) {
	for sub, segs := range s.subs {
		if !pathsRelated(segs, wrote) {
			continue
		}
		raw, err := s.snapshotLocked(segs)
		if err != nil {
			continue
		}
		sub.deliver(raw)
	}
}
