package rtdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the tree in Redis. Each node is a hash whose fields hold
// the JSON of its scalar children; object children recurse into their own
// hashes at their own paths and are tracked in the parent's child-index set,
// so any depth of the tree is addressable by later reads and partial
// updates. Change fan-out uses Redis Pub/Sub: every mutation publishes an
// event for the written path and each of its ancestors, and subscribers
// re-read the full subtree on every event, which is exactly the
// full-snapshot-replace contract.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func nodeKey(path string) string  { return "rtdb:node:" + path }
func indexKey(path string) string { return "rtdb:idx:" + path }
func eventKey(path string) string { return "rtdb:evt:" + path }

func childOf(path, field string) string {
	if path == "" {
		return field
	}
	return path + "/" + field
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	path = strings.Trim(path, "/")

	fields, err := s.client.HGetAll(ctx, nodeKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read failed for %s: %w", path, err)
	}
	children, err := s.client.SMembers(ctx, indexKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read failed for %s: %w", path, err)
	}

	if len(fields) == 0 && len(children) == 0 {
		// Possibly a leaf stored as a field of the parent node.
		if path != "" {
			parent, leaf := parentOf(path)
			val, err := s.client.HGet(ctx, nodeKey(parent), leaf).Result()
			if err == nil {
				return json.RawMessage(val), nil
			}
			if err != redis.Nil {
				return nil, fmt.Errorf("redis read failed for %s: %w", path, err)
			}
		}
		return json.RawMessage("null"), nil
	}

	node := make(map[string]json.RawMessage, len(fields)+len(children))
	for field, val := range fields {
		node[field] = json.RawMessage(val)
	}
	for _, child := range children {
		if _, ok := node[child]; ok {
			continue
		}
		childPath := child
		if path != "" {
			childPath = path + "/" + child
		}
		sub, err := s.Get(ctx, childPath)
		if err != nil {
			return nil, err
		}
		if string(sub) != "null" {
			node[child] = sub
		}
	}

	return json.Marshal(node)
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	path = strings.Trim(path, "/")
	tree, err := toTree(value)
	if err != nil {
		return err
	}

	if err := s.deleteSubtree(ctx, path); err != nil {
		return err
	}
	if err := s.writeValue(ctx, path, tree); err != nil {
		return err
	}
	return s.publish(ctx, path)
}

// writeValue stores tree at path. Object values become their own hashes and
// nested objects recurse, so a whole-object Set and a later Get or Update at
// any depth inside it address the same node.
func (s *RedisStore) writeValue(ctx context.Context, path string, tree any) error {
	switch node := tree.(type) {
	case nil:
		return nil
	case map[string]any:
		scalars := make(map[string]any)
		for field, val := range node {
			if child, ok := val.(map[string]any); ok {
				if err := s.writeValue(ctx, childOf(path, field), child); err != nil {
					return err
				}
				continue
			}
			raw, err := json.Marshal(val)
			if err != nil {
				return err
			}
			scalars[field] = string(raw)
		}
		if len(scalars) > 0 {
			if err := s.client.HSet(ctx, nodeKey(path), scalars).Err(); err != nil {
				return fmt.Errorf("redis write failed for %s: %w", path, err)
			}
		}
		return s.register(ctx, path)
	default:
		if path == "" {
			return fmt.Errorf("root value must be an object")
		}
		parent, leaf := parentOf(path)
		raw, err := json.Marshal(node)
		if err != nil {
			return err
		}
		if err := s.client.HSet(ctx, nodeKey(parent), leaf, string(raw)).Err(); err != nil {
			return fmt.Errorf("redis write failed for %s: %w", path, err)
		}
		return s.register(ctx, parent)
	}
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, path string, fields map[string]any) error {
	path = strings.Trim(path, "/")

	for field, value := range fields {
		tree, err := toTree(value)
		if err != nil {
			return err
		}
		childPath := childOf(path, field)
		// The previous value may live inline in this node's hash or as its
		// own child node; clear both before writing the replacement.
		if err := s.client.HDel(ctx, nodeKey(path), field).Err(); err != nil {
			return fmt.Errorf("redis write failed for %s: %w", path, err)
		}
		if err := s.deleteSubtree(ctx, childPath); err != nil {
			return err
		}
		if err := s.writeValue(ctx, childPath, tree); err != nil {
			return err
		}
	}

	if err := s.register(ctx, path); err != nil {
		return err
	}
	return s.publish(ctx, path)
}

// Push implements Store.
func (s *RedisStore) Push(ctx context.Context, path string, value any) (string, error) {
	path = strings.Trim(path, "/")
	key := NewPushID()

	tree, err := toTree(value)
	if err != nil {
		return "", err
	}
	childPath := childOf(path, key)
	if err := s.writeValue(ctx, childPath, tree); err != nil {
		return "", err
	}

	if err := s.register(ctx, path); err != nil {
		return "", err
	}
	if err := s.publish(ctx, childPath); err != nil {
		return "", err
	}
	return key, nil
}

// Subscribe implements Store.
func (s *RedisStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	path = strings.Trim(path, "/")

	pubsub := s.client.Subscribe(ctx, eventKey(path))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed for %s: %w", path, err)
	}

	sub := newSubscription(func() { pubsub.Close() })

	initial, err := s.Get(ctx, path)
	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.deliver(initial)

	go func() {
		defer sub.Close()
		for range pubsub.Channel() {
			raw, err := s.Get(ctx, path)
			if err != nil {
				continue
			}
			sub.deliver(raw)
		}
	}()

	sub.watchContext(ctx)
	return sub, nil
}

// register records path in its ancestors' child indexes so subtree reads can
// find nodes created as their own hashes.
func (s *RedisStore) register(ctx context.Context, path string) error {
	for path != "" {
		parent, leaf := parentOf(path)
		if err := s.client.SAdd(ctx, indexKey(parent), leaf).Err(); err != nil {
			return fmt.Errorf("redis write failed for %s: %w", path, err)
		}
		path = parent
	}
	return nil
}

// deleteSubtree removes the node at path, its child index, and every
// registered descendant.
func (s *RedisStore) deleteSubtree(ctx context.Context, path string) error {
	children, err := s.client.SMembers(ctx, indexKey(path)).Result()
	if err != nil {
		return fmt.Errorf("redis read failed for %s: %w", path, err)
	}
	for _, child := range children {
		childPath := child
		if path != "" {
			childPath = path + "/" + child
		}
		if err := s.deleteSubtree(ctx, childPath); err != nil {
			return err
		}
	}
	if err := s.client.Del(ctx, nodeKey(path), indexKey(path)).Err(); err != nil {
		return fmt.Errorf("redis delete failed for %s: %w", path, err)
	}
	if path != "" {
		parent, leaf := parentOf(path)
		if err := s.client.SRem(ctx, indexKey(parent), leaf).Err(); err != nil {
			return fmt.Errorf("redis delete failed for %s: %w", path, err)
		}
	}
	return nil
}

// publish notifies subscribers of the written path and all of its ancestors.
func (s *RedisStore) publish(ctx context.Context, path string) error {
	for {
		if err := s.client.Publish(ctx, eventKey(path), "1").Err(); err != nil {
			return fmt.Errorf("redis publish failed for %s: %w", path, err)
		}
		if path == "" {
			return nil
		}
		path, _ = parentOf(path)
	}
}
