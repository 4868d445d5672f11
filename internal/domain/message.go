package domain

import (
	"fmt"
	"sort"
)

// MessageKind discriminates the message payload
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindDocument MessageKind = "document"
	KindAudio    MessageKind = "audio"
)

// Message is a chat message record. Messages are immutable once written and
// the collection is append-only; there are no edit or delete operations.
//
// The wire shape is fixed by the persisted tree layout: text messages carry
// their body in Text, image/document messages carry a URI (local device URI
// or storage download URL) in Text, and audio messages carry their URI in
// AudioURI. Group messages may carry only the sender fields and a timestamp.
type Message struct {
	Text          string      `json:"text,omitempty"`
	AudioURI      string      `json:"audioUri,omitempty"`
	Timestamp     int64       `json:"timestamp"` // client clock, ms since epoch; not authoritative
	SenderID      string      `json:"senderId"`
	SenderName    string      `json:"senderName,omitempty"`
	SenderPhoto   string      `json:"senderPhoto,omitempty"`
	ReceiverID    string      `json:"receiverId,omitempty"`
	ReceiverName  string      `json:"receiverName,omitempty"`
	ReceiverPhoto string      `json:"receiverPhoto,omitempty"`
	ChatRoomID    string      `json:"chatRoomId,omitempty"`
	Kind          MessageKind `json:"messageType,omitempty"`
}

// EffectiveKind returns the message kind, defaulting to text for records
// written without an explicit messageType (group messages in the wild).
func (m Message) EffectiveKind() MessageKind {
	if m.Kind == "" {
		return KindText
	}
	return m.Kind
}

// Payload returns the displayable payload for the message kind.
func (m Message) Payload() (string, error) {
	switch m.EffectiveKind() {
	case KindText, KindImage, KindDocument:
		return m.Text, nil
	case KindAudio:
		return m.AudioURI, nil
	default:
		return "", fmt.Errorf("unknown message kind %q", m.Kind)
	}
}

// Validate checks that the message carries a payload for its kind.
// A message is publishable when it has non-empty text or a media reference.
func (m Message) Validate() error {
	switch m.EffectiveKind() {
	case KindText:
		if m.Text == "" {
			return fmt.Errorf("text message has empty body")
		}
	case KindImage, KindDocument:
		if m.Text == "" {
			return fmt.Errorf("%s message has no media reference", m.EffectiveKind())
		}
	case KindAudio:
		if m.AudioURI == "" {
			return fmt.Errorf("audio message has no media reference")
		}
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	if m.SenderID == "" {
		return fmt.Errorf("message has no sender")
	}
	return nil
}

// looksLikeMessage filters conversation-node fields that are not messages
// (typing, groupName, participants) when decoding snapshots.
func (m Message) looksLikeMessage() bool {
	return m.Timestamp > 0 && m.SenderID != ""
}

// SortByTimestamp orders messages by their client timestamp, oldest first.
// The backend makes no ordering promise, so display order is derived here.
func SortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}
