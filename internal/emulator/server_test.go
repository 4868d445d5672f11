package emulator

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	chatService "chatlink/internal/service/chat"
	"chatlink/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitDefault()
	m.Run()
}

func startEmulator(t *testing.T) *rtdb.RemoteStore {
	t.Helper()
	srv := httptest.NewServer(New(rtdb.NewMemoryStore()).Handler())
	t.Cleanup(srv.Close)
	return rtdb.NewRemoteStore(srv.URL)
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	store := startEmulator(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users/alice", map[string]any{"fullName": "Alice", "active": true}))

	raw, err := store.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName": "Alice", "active": true}`, string(raw))

	require.NoError(t, store.Update(ctx, "users/alice", map[string]any{"active": nil, "phone": "111"}))
	raw, err = store.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName": "Alice", "phone": "111"}`, string(raw))

	require.NoError(t, store.Set(ctx, "users/alice", nil))
	raw, err = store.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestRemoteStorePush(t *testing.T) {
	store := startEmulator(t)
	ctx := context.Background()

	key, err := store.Push(ctx, "chats/room", map[string]any{"text": "hello", "timestamp": 1, "senderId": "a"})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	raw, err := store.Get(ctx, "chats/room")
	require.NoError(t, err)
	var node map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &node))
	assert.Contains(t, node, key)
}

func TestWatchStreamsSnapshots(t *testing.T) {
	store := startEmulator(t)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "chats/room")
	require.NoError(t, err)
	defer sub.Close()

	// Initial snapshot for an absent path.
	raw := receiveRaw(t, sub)
	assert.Equal(t, "null", string(raw))

	_, err = store.Push(ctx, "chats/room", map[string]any{"text": "hi", "timestamp": 5, "senderId": "a"})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		raw = receiveRaw(t, sub)
		if string(raw) != "null" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("never saw the pushed message")
		default:
		}
	}
	assert.Contains(t, string(raw), `"hi"`)
}

// The full client stack against the wire protocol: chat service on a
// RemoteStore talking to the emulator.
func TestChatServiceOverEmulator(t *testing.T) {
	store := startEmulator(t)
	svc := chatService.NewService(store)
	ctx := context.Background()
	ref := domain.DirectConversation("a@x.com", "b@x.com")

	require.NoError(t, svc.SetTyping(ctx, ref, "a@x,com"))
	require.NoError(t, svc.Publish(ctx, ref, domain.Message{Text: "over the wire", SenderID: "a@x.com"}))

	feed, err := svc.Subscribe(ctx, ref)
	require.NoError(t, err)
	defer feed.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-feed.Snapshots():
			require.True(t, ok, "feed closed")
			if len(snap.Messages) == 1 && snap.Typing == "" {
				assert.Equal(t, "over the wire", snap.Messages[0].Text)
				assert.Equal(t, "a@x,com_b@x,com", snap.Messages[0].ChatRoomID)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for published message")
		}
	}
}

func receiveRaw(t *testing.T, sub *rtdb.Subscription) json.RawMessage {
	t.Helper()
	select {
	case raw, ok := <-sub.Snapshots():
		require.True(t, ok, "subscription closed")
		return raw
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
