package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ConversationSnapshot is the decoded state of one conversation node. Every
// subscription update re-delivers the whole node, so the snapshot is always
// re-derived from scratch; there are no deltas.
type ConversationSnapshot struct {
	Messages     []Message       // sorted by client timestamp, oldest first
	Typing       string          // encoded id of the participant composing, "" when nobody
	GroupName    string          // group conversations only
	Participants map[string]bool // group conversations only
}

// TypingBy reports whether the given participant is recorded as composing.
func (s *ConversationSnapshot) TypingBy(userID string) bool {
	return s.Typing != "" && s.Typing == userID
}

// DecodeConversation converts a raw conversation-node snapshot into typed
// state. The node mixes push-keyed messages with the typing field and, for
// groups, the group metadata; fields that do not look like messages are
// routed by name and everything else is dropped.
func DecodeConversation(raw json.RawMessage) (*ConversationSnapshot, error) {
	snap := &ConversationSnapshot{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return snap, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("malformed conversation snapshot: %w", err)
	}

	for key, val := range fields {
		switch key {
		case "typing":
			var typing *string
			if err := json.Unmarshal(val, &typing); err == nil && typing != nil {
				snap.Typing = *typing
			}
		case "groupName":
			_ = json.Unmarshal(val, &snap.GroupName)
		case "participants":
			_ = json.Unmarshal(val, &snap.Participants)
		default:
			var msg Message
			if err := json.Unmarshal(val, &msg); err != nil {
				continue
			}
			if msg.looksLikeMessage() {
				snap.Messages = append(snap.Messages, msg)
			}
		}
	}

	SortByTimestamp(snap.Messages)
	return snap, nil
}
