package push

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	"chatlink/pkg/logger"
)

// Notifier pokes offline recipients of direct messages. It reads the
// recipient's user record; if they are marked active no push goes out, the
// live snapshot feed is already showing them the message. All failures are
// logged and swallowed, delivery of the message itself never depends on the
// push path.
type Notifier struct {
	store rtdb.Store
	fcm   Provider
	apns  Provider
}

// NewNotifier creates a notifier. Either provider may be nil.
func NewNotifier(store rtdb.Store, fcm, apns Provider) *Notifier {
	return &Notifier{store: store, fcm: fcm, apns: apns}
}

// MessageSent implements the chat service's notifier hook.
func (n *Notifier) MessageSent(ctx context.Context, msg domain.Message) {
	if msg.ReceiverID == "" {
		// Group sends carry no single recipient; fan-out is not attempted.
		return
	}

	recipient, err := n.lookup(ctx, domain.EncodeUserID(msg.ReceiverID))
	if err != nil {
		logger.Warn("push recipient lookup failed",
			zap.String("receiver", msg.ReceiverID),
			zap.Error(err))
		return
	}
	if recipient == nil || recipient.Active {
		return
	}

	notification := &Notification{
		Title: msg.SenderName,
		Body:  previewFor(msg),
		Data: map[string]string{
			"chatRoomId": msg.ChatRoomID,
			"senderId":   msg.SenderID,
		},
		Sound: "default",
	}
	if notification.Title == "" {
		notification.Title = msg.SenderID
	}

	n.send(ctx, n.fcm, "fcm", notification, recipient.FCMToken)
	n.send(ctx, n.apns, "apns", notification, recipient.APNSToken)
}

func (n *Notifier) send(ctx context.Context, provider Provider, name string, notification *Notification, token string) {
	if provider == nil || token == "" {
		return
	}
	result, err := provider.Send(ctx, notification, []string{token})
	if err != nil {
		logger.Warn("push send failed",
			zap.String("provider", name),
			zap.Error(err))
		return
	}
	if result.FailureCount > 0 {
		logger.Warn("push delivery failed",
			zap.String("provider", name),
			zap.Int("failures", result.FailureCount))
	}
}

func (n *Notifier) lookup(ctx context.Context, key string) (*domain.User, error) {
	raw, err := n.store.Get(ctx, "users/"+key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func previewFor(msg domain.Message) string {
	switch msg.EffectiveKind() {
	case domain.KindImage:
		return "Sent a photo"
	case domain.KindDocument:
		return "Sent a document"
	case domain.KindAudio:
		return "Sent a voice message"
	default:
		return msg.Text
	}
}
