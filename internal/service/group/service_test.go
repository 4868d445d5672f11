package group

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	apperrors "chatlink/pkg/errors"
)

func TestCreateGroup(t *testing.T) {
	store := rtdb.NewMemoryStore()
	svc := NewService(store)

	g, err := svc.Create(context.Background(), "alice@x,com", "weekend plans", []string{"bob@x,com", "carol@x,com"})
	require.NoError(t, err)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "weekend plans", g.GroupName)
	assert.True(t, g.HasParticipant("alice@x,com"), "creator must be a participant")
	assert.True(t, g.HasParticipant("bob@x,com"))
	assert.True(t, g.HasParticipant("carol@x,com"))
	assert.Len(t, g.Participants, 3)

	stored, err := svc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Participants, stored.Participants)
}

func TestCreateGroupValidation(t *testing.T) {
	svc := NewService(rtdb.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		gname   string
		members []string
	}{
		{"empty name", "   ", []string{"b", "c"}},
		{"one member", "plans", []string{"b"}},
		{"no members", "plans", nil},
		{"creator does not count as selected", "plans", []string{"alice@x,com", "b"}},
		{"duplicates collapse", "plans", []string{"b", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice@x,com", tt.gname, tt.members)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		})
	}
}

func TestGetUnknownGroup(t *testing.T) {
	svc := NewService(rtdb.NewMemoryStore())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestLeaveRemovesExactlyOneParticipant(t *testing.T) {
	store := rtdb.NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, "alice@x,com", "plans", []string{"bob@x,com", "carol@x,com"})
	require.NoError(t, err)

	// Seed a message on the conversation node so we can prove leaving does
	// not disturb it.
	ref := domain.GroupConversation(g.ID)
	_, err = store.Push(ctx, ref.Path, map[string]any{"text": "hi", "timestamp": 1, "senderId": "bob@x,com"})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, g.ID, "bob@x,com"))

	after, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, after.HasParticipant("bob@x,com"))
	assert.True(t, after.HasParticipant("alice@x,com"))
	assert.True(t, after.HasParticipant("carol@x,com"))
	assert.Equal(t, "plans", after.GroupName)

	raw, err := store.Get(ctx, ref.Path)
	require.NoError(t, err)
	snap, err := domain.DecodeConversation(raw)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 1, "messages must survive a leave")
}

// Same leave semantics against the Redis-backed tree, where groups are
// stored as nested nodes rather than in-process maps.
func TestLeaveOnRedisBackedTree(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(rtdb.NewRedisStore(client))
	ctx := context.Background()

	g, err := svc.Create(ctx, "alice@x,com", "plans", []string{"bob@x,com", "carol@x,com"})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, g.ID, "bob@x,com"))

	after, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, after.HasParticipant("bob@x,com"))
	assert.True(t, after.HasParticipant("alice@x,com"))
	assert.True(t, after.HasParticipant("carol@x,com"))
	assert.Equal(t, "plans", after.GroupName)
}

func TestLeaveByNonParticipant(t *testing.T) {
	svc := NewService(rtdb.NewMemoryStore())
	ctx := context.Background()

	g, err := svc.Create(ctx, "alice@x,com", "plans", []string{"bob@x,com", "carol@x,com"})
	require.NoError(t, err)

	err = svc.Leave(ctx, g.ID, "stranger@x,com")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePermission))
}

func TestListForUser(t *testing.T) {
	store := rtdb.NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice@x,com", "zebra watchers", []string{"bob@x,com", "carol@x,com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice@x,com", "alpine club", []string{"bob@x,com", "dave@x,com"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "carol@x,com", "no alice here", []string{"bob@x,com", "dave@x,com"})
	require.NoError(t, err)

	mine, err := svc.ListForUser(ctx, "alice@x,com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "alpine club", mine[0].GroupName)
	assert.Equal(t, "zebra watchers", mine[1].GroupName)

	bobs, err := svc.ListForUser(ctx, "bob@x,com")
	require.NoError(t, err)
	assert.Len(t, bobs, 3)

	none, err := svc.ListForUser(ctx, "ghost@x,com")
	require.NoError(t, err)
	assert.Empty(t, none)
}
