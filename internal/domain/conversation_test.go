package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeUserID(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"plain address", "alice@example.com", "alice@example,com"},
		{"upper case folded", "Alice@Example.COM", "alice@example,com"},
		{"multiple dots", "a.b.c@mail.co.uk", "a,b,c@mail,co,uk"},
		{"no dots", "bob@localhost", "bob@localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeUserID(tt.email))
		})
	}
}

func TestDecodeUserIDRoundTrip(t *testing.T) {
	email := "first.last@example.com"
	assert.Equal(t, email, DecodeUserID(EncodeUserID(email)))
}

func TestTwoPartyKeySymmetry(t *testing.T) {
	keyAB := TwoPartyKey("a@x.com", "b@x.com")
	keyBA := TwoPartyKey("b@x.com", "a@x.com")

	assert.Equal(t, keyAB, keyBA)
	assert.Equal(t, "a@x,com_b@x,com", keyAB)
}

func TestTwoPartyKeyCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		TwoPartyKey("Alice@Example.com", "bob@example.com"),
		TwoPartyKey("alice@example.com", "BOB@EXAMPLE.COM"))
}

func TestDirectConversation(t *testing.T) {
	ref := DirectConversation("b@x.com", "a@x.com")

	assert.Equal(t, "chats/a@x,com_b@x,com", ref.Path)
	assert.Equal(t, "a@x,com_b@x,com", ref.Key())
	assert.False(t, ref.IsGroup())
}

func TestGroupConversation(t *testing.T) {
	ref := GroupConversation("team-42")

	assert.Equal(t, "groups/team-42", ref.Path)
	assert.Equal(t, "groups/team-42", ref.Key())
	assert.True(t, ref.IsGroup())
}
