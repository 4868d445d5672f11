package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// FirebaseStore adapts the Firebase Realtime Database, the backend the
// original mobile client ran against. Reads and writes map one-to-one onto
// the Admin SDK; the SDK exposes no listener API in Go, so Subscribe polls
// the subtree and delivers a snapshot whenever its content changes.
type FirebaseStore struct {
	client       *db.Client
	pollInterval time.Duration
}

// FirebaseConfig holds Realtime Database connection settings.
type FirebaseConfig struct {
	DatabaseURL     string
	CredentialsFile string        // service account JSON; omitted for default credentials
	PollInterval    time.Duration // Subscribe poll cadence; defaults to 2s
}

// NewFirebaseStore initializes the Firebase app and its database client.
func NewFirebaseStore(ctx context.Context, cfg *FirebaseConfig) (*FirebaseStore, error) {
	if cfg == nil || cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("firebase database URL is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: cfg.DatabaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	return &FirebaseStore{client: client, pollInterval: interval}, nil
}

// Get implements Store.
func (s *FirebaseStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var value any
	if err := s.client.NewRef(path).Get(ctx, &value); err != nil {
		return nil, fmt.Errorf("firebase read failed for %s: %w", path, err)
	}
	if value == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(value)
}

// Set implements Store.
func (s *FirebaseStore) Set(ctx context.Context, path string, value any) error {
	ref := s.client.NewRef(path)
	if value == nil {
		if err := ref.Delete(ctx); err != nil {
			return fmt.Errorf("firebase delete failed for %s: %w", path, err)
		}
		return nil
	}
	if err := ref.Set(ctx, value); err != nil {
		return fmt.Errorf("firebase write failed for %s: %w", path, err)
	}
	return nil
}

// Update implements Store.
func (s *FirebaseStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := s.client.NewRef(path).Update(ctx, fields); err != nil {
		return fmt.Errorf("firebase update failed for %s: %w", path, err)
	}
	return nil
}

// Push implements Store.
func (s *FirebaseStore) Push(ctx context.Context, path string, value any) (string, error) {
	ref, err := s.client.NewRef(path).Push(ctx, value)
	if err != nil {
		return "", fmt.Errorf("firebase push failed for %s: %w", path, err)
	}
	return ref.Key, nil
}

// Subscribe implements Store via polling.
func (s *FirebaseStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	initial, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	sub := newSubscription(nil)
	sub.deliver(initial)

	go func() {
		last := initial
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sub.Done():
				return
			case <-ticker.C:
				raw, err := s.Get(ctx, path)
				if err != nil {
					continue
				}
				if bytes.Equal(raw, last) {
					continue
				}
				last = raw
				sub.deliver(raw)
			}
		}
	}()

	sub.watchContext(ctx)
	return sub, nil
}
