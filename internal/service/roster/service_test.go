package roster

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	"chatlink/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	m.Run()
}

func seedUsers(t *testing.T, store *rtdb.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	users := map[string]domain.User{
		"alice@x,com": {FullName: "Alice", Email: "alice@x.com", Phone: "111", Active: true},
		"bob@x,com":   {FullName: "Bob", Email: "bob@x.com", Phone: "222"},
		"carol@x,com": {FullName: "Carol", Email: "carol@x.com", Phone: "333", LastOnline: 1700000000000},
	}
	for key, u := range users {
		require.NoError(t, store.Set(ctx, "users/"+key, u))
	}
}

func TestContactsExcludesSelfAndSorts(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seedUsers(t, store)
	svc := NewService(store)

	contacts, err := svc.Contacts(context.Background(), "bob@x,com")
	require.NoError(t, err)

	require.Len(t, contacts, 2)
	assert.Equal(t, "Alice", contacts[0].FullName)
	assert.Equal(t, "Carol", contacts[1].FullName)
	assert.Equal(t, "alice@x,com", contacts[0].Key)
}

func TestContactsEmptyRoster(t *testing.T) {
	svc := NewService(rtdb.NewMemoryStore())

	contacts, err := svc.Contacts(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestLookup(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seedUsers(t, store)
	svc := NewService(store)

	u, err := svc.Lookup(context.Background(), "alice@x,com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Alice", u.FullName)

	u, err = svc.Lookup(context.Background(), "ghost@x,com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestPresenceFlips(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seedUsers(t, store)
	svc := NewService(store, WithClock(func() time.Time { return time.UnixMilli(1700000099000) }))
	ctx := context.Background()

	require.NoError(t, svc.SetActive(ctx, "bob@x,com"))
	u, err := svc.Lookup(ctx, "bob@x,com")
	require.NoError(t, err)
	assert.True(t, u.Active)
	assert.Equal(t, "Bob", u.FullName) // untouched by the merge

	require.NoError(t, svc.SetOffline(ctx, "bob@x,com"))
	u, err = svc.Lookup(ctx, "bob@x,com")
	require.NoError(t, err)
	assert.False(t, u.Active)
	assert.Equal(t, int64(1700000099000), u.LastOnline)
}

func TestUpdateProfileMergesOnlyGivenFields(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seedUsers(t, store)
	svc := NewService(store)
	ctx := context.Background()

	name := "Alice Renamed"
	photo := "https://cdn/alice2.png"
	err := svc.UpdateProfile(ctx, "alice@x,com", ProfileUpdate{
		FullName:     &name,
		ProfileImage: &photo,
	})
	require.NoError(t, err)

	raw, err := store.Get(ctx, "users/alice@x,com")
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "Alice Renamed", record["fullName"])
	assert.Equal(t, "https://cdn/alice2.png", record["ProfileImage"])
	assert.Equal(t, "111", record["phone"])
	assert.Equal(t, "alice@x.com", record["email"])
}

func TestUpdateProfileNoFieldsIsNoop(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seedUsers(t, store)
	svc := NewService(store)

	before, err := store.Get(context.Background(), "users/alice@x,com")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateProfile(context.Background(), "alice@x,com", ProfileUpdate{}))

	after, err := store.Get(context.Background(), "users/alice@x,com")
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestUpdateProfilePropagation(t *testing.T) {
	store := rtdb.NewMemoryStore()
	ctx := context.Background()
	// Two records share a phone number; a third does not.
	require.NoError(t, store.Set(ctx, "users/a@x,com", domain.User{FullName: "A", Email: "a@x.com", Phone: "555"}))
	require.NoError(t, store.Set(ctx, "users/twin@x,com", domain.User{FullName: "Twin", Email: "twin@x.com", Phone: "555"}))
	require.NoError(t, store.Set(ctx, "users/other@x,com", domain.User{FullName: "Other", Email: "other@x.com", Phone: "777"}))

	name := "A Updated"

	t.Run("disabled by default", func(t *testing.T) {
		svc := NewService(store)
		require.NoError(t, svc.UpdateProfile(ctx, "a@x,com", ProfileUpdate{FullName: &name}))

		twin, err := svc.Lookup(ctx, "twin@x,com")
		require.NoError(t, err)
		assert.Equal(t, "Twin", twin.FullName)
	})

	t.Run("enabled", func(t *testing.T) {
		svc := NewService(store, WithProfilePropagation())
		require.NoError(t, svc.UpdateProfile(ctx, "a@x,com", ProfileUpdate{FullName: &name}))

		twin, err := svc.Lookup(ctx, "twin@x,com")
		require.NoError(t, err)
		assert.Equal(t, "A Updated", twin.FullName)

		other, err := svc.Lookup(ctx, "other@x,com")
		require.NoError(t, err)
		assert.Equal(t, "Other", other.FullName)
	})
}

func TestSubscribeSeesPresenceChanges(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seedUsers(t, store)
	svc := NewService(store)
	ctx := context.Background()

	feed, err := svc.Subscribe(ctx, "alice@x,com")
	require.NoError(t, err)
	defer feed.Close()

	contacts := receiveContacts(t, feed)
	require.Len(t, contacts, 2)

	require.NoError(t, svc.SetActive(ctx, "bob@x,com"))

	contacts = receiveContacts(t, feed)
	for _, c := range contacts {
		if c.Key == "bob@x,com" {
			assert.True(t, c.Active)
			return
		}
	}
	t.Fatal("bob missing from roster snapshot")
}

func receiveContacts(t *testing.T, feed *Feed) []Contact {
	t.Helper()
	select {
	case contacts, ok := <-feed.Contacts():
		require.True(t, ok, "feed closed")
		return contacts
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for roster snapshot")
		return nil
	}
}
