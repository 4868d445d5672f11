package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// RemoteStore talks to the bundled emulator (or any server speaking the same
// protocol): plain JSON over HTTP for reads and writes, a WebSocket stream of
// full subtree snapshots for subscriptions.
type RemoteStore struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// NewRemoteStore creates a client for the emulator at baseURL.
func NewRemoteStore(baseURL string) *RemoteStore {
	return &RemoteStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
}

func (s *RemoteStore) treeURL(path string) string {
	return s.baseURL + "/v1/tree/" + strings.Trim(path, "/")
}

func (s *RemoteStore) watchURL(path string) string {
	url := s.baseURL + "/v1/watch/" + strings.Trim(path, "/")
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

func (s *RemoteStore) do(ctx context.Context, method, url string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %d for %s %s", resp.StatusCode, method, url)
	}
	return raw, nil
}

// Get implements Store.
func (s *RemoteStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return s.do(ctx, http.MethodGet, s.treeURL(path), nil)
}

// Set implements Store.
func (s *RemoteStore) Set(ctx context.Context, path string, value any) error {
	payload := value
	if payload == nil {
		payload = json.RawMessage("null")
	}
	_, err := s.do(ctx, http.MethodPut, s.treeURL(path), payload)
	return err
}

// Update implements Store.
func (s *RemoteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	normalized := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			normalized[key] = json.RawMessage("null")
		} else {
			normalized[key] = value
		}
	}
	_, err := s.do(ctx, http.MethodPatch, s.treeURL(path), normalized)
	return err
}

// Push implements Store.
func (s *RemoteStore) Push(ctx context.Context, path string, value any) (string, error) {
	raw, err := s.do(ctx, http.MethodPost, s.treeURL(path), value)
	if err != nil {
		return "", err
	}
	var result struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("malformed push response: %w", err)
	}
	return result.Name, nil
}

// Subscribe implements Store.
func (s *RemoteStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.watchURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("watch dial failed for %s: %w", path, err)
	}

	sub := newSubscription(func() { conn.Close() })

	go func() {
		defer sub.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			sub.deliver(json.RawMessage(raw))
		}
	}()

	sub.watchContext(ctx)
	return sub, nil
}
