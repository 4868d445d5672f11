package rtdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath(t *testing.T) {
	assert.Empty(t, splitPath(""))
	assert.Empty(t, splitPath("/"))
	assert.Equal(t, []string{"chats", "room"}, splitPath("chats/room"))
	assert.Equal(t, []string{"chats", "room"}, splitPath("/chats/room/"))
}

func TestPathsRelated(t *testing.T) {
	tests := []struct {
		name    string
		sub     []string
		wrote   []string
		related bool
	}{
		{"same path", []string{"chats", "a"}, []string{"chats", "a"}, true},
		{"write below subscription", []string{"chats", "a"}, []string{"chats", "a", "-N1"}, true},
		{"write above subscription", []string{"chats", "a"}, []string{"chats"}, true},
		{"root write", []string{"chats", "a"}, nil, true},
		{"sibling", []string{"chats", "a"}, []string{"chats", "b"}, false},
		{"different tree", []string{"chats", "a"}, []string{"users", "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.related, pathsRelated(tt.sub, tt.wrote))
		})
	}
}

func TestNewPushIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewPushID()
		assert.False(t, seen[id], "duplicate push id %s", id)
		seen[id] = true
	}
}
