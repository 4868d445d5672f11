package domain

import (
	"sort"
	"strings"
)

// EncodeUserID normalizes an email address into a tree-safe participant key:
// lower-cased, with every "." replaced by "," because the backend rejects "."
// inside path segments.
func EncodeUserID(email string) string {
	return strings.ReplaceAll(strings.ToLower(email), ".", ",")
}

// DecodeUserID reverses EncodeUserID back into an email address.
func DecodeUserID(key string) string {
	return strings.ReplaceAll(key, ",", ".")
}

// TwoPartyKey derives the canonical conversation key for a pairwise chat.
// The key is symmetric: both participants compute the same value, which is
// what makes the two clients converge on the same channel.
func TwoPartyKey(a, b string) string {
	keys := []string{EncodeUserID(a), EncodeUserID(b)}
	sort.Strings(keys)
	return strings.Join(keys, "_")
}

// GroupKey returns the conversation key for a group, namespaced under groups/.
func GroupKey(groupID string) string {
	return "groups/" + groupID
}

// ConversationRef addresses a conversation node in the realtime tree.
// Direct chats live under chats/{key}, groups under groups/{id}; both share
// the same node shape: push-keyed messages plus a typing field.
type ConversationRef struct {
	Path string
}

// DirectConversation resolves the conversation between two participants.
func DirectConversation(emailA, emailB string) ConversationRef {
	return ConversationRef{Path: "chats/" + TwoPartyKey(emailA, emailB)}
}

// GroupConversation resolves a group conversation from its group id.
func GroupConversation(groupID string) ConversationRef {
	return ConversationRef{Path: GroupKey(groupID)}
}

// Key returns the chat room identifier stamped on messages. For direct chats
// this is the sorted-pair key; for groups it is the groups/{id} key itself.
func (r ConversationRef) Key() string {
	return strings.TrimPrefix(r.Path, "chats/")
}

// IsGroup reports whether the ref addresses a group conversation.
func (r ConversationRef) IsGroup() bool {
	return strings.HasPrefix(r.Path, "groups/")
}
