package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	apperrors "chatlink/pkg/errors"
	"chatlink/pkg/logger"
	"chatlink/pkg/metrics"
)

// MediaUploader stores a blob and returns its download URL.
type MediaUploader interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64) (string, error)
}

// Notifier is told about successfully published messages so offline
// recipients can be poked out-of-band. Failures are the notifier's problem;
// publishing never waits on it.
type Notifier interface {
	MessageSent(ctx context.Context, msg domain.Message)
}

// Service is the message channel: publish, live snapshot subscribe, and the
// shared typing signal, all thin calls against the realtime store.
type Service struct {
	store    rtdb.Store
	media    MediaUploader
	notifier Notifier
	now      func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithMedia enables media message sending.
func WithMedia(m MediaUploader) Option {
	return func(s *Service) { s.media = m }
}

// WithNotifier enables post-publish notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a chat service on top of the given store.
func NewService(store rtdb.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish appends the message to the conversation under a generated child
// key and clears the typing flag, matching the send flow of the client:
// no dedup, no delivery confirmation, ordering left to consumers.
func (s *Service) Publish(ctx context.Context, ref domain.ConversationRef, msg domain.Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = s.now().UnixMilli()
	}
	msg.ChatRoomID = ref.Key()

	if err := msg.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeEmptyMessage, "message rejected", err)
	}

	if _, err := s.store.Push(ctx, ref.Path, msg); err != nil {
		metrics.Chat().PublishFailures.Inc()
		return fmt.Errorf("failed to publish message: %w", err)
	}
	metrics.Chat().MessagesPublished.WithLabelValues(string(msg.EffectiveKind())).Inc()

	// A send always resets the typing signal for the conversation.
	if err := s.ClearTyping(ctx, ref); err != nil {
		logger.Warn("failed to clear typing after publish",
			zap.String("conversation", ref.Key()),
			zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.MessageSent(ctx, msg)
	}
	return nil
}

// SendText publishes a text message composed from the sender's session and
// the receiver's contact record.
func (s *Service) SendText(ctx context.Context, ref domain.ConversationRef, from domain.Session, to *domain.User, text string) error {
	msg := s.compose(ref, from, to)
	msg.Kind = domain.KindText
	msg.Text = strings.TrimSpace(text)
	return s.Publish(ctx, ref, msg)
}

// SendMedia uploads the blob to storage under
// {chatRoomId}/{kind}s/{fileName} and publishes a message whose payload is
// the download URL.
func (s *Service) SendMedia(ctx context.Context, ref domain.ConversationRef, from domain.Session, to *domain.User, kind domain.MessageKind, fileName string, r io.Reader, size int64) error {
	if s.media == nil {
		return fmt.Errorf("no media storage configured")
	}

	objectKey := fmt.Sprintf("%s/%ss/%s", ref.Key(), kind, fileName)
	url, err := s.media.Upload(ctx, objectKey, r, size)
	if err != nil {
		return apperrors.StorageError(err)
	}
	metrics.Chat().MediaUploads.Inc()

	msg := s.compose(ref, from, to)
	msg.Kind = kind
	if kind == domain.KindAudio {
		msg.AudioURI = url
	} else {
		msg.Text = url
	}
	return s.Publish(ctx, ref, msg)
}

// Subscribe opens a live feed of conversation snapshots. The feed must be
// closed when the conversation view goes away; leaked feeds keep receiving
// and accumulate duplicate work for the same conversation.
func (s *Service) Subscribe(ctx context.Context, ref domain.ConversationRef) (*Feed, error) {
	sub, err := s.store.Subscribe(ctx, ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ref.Key(), err)
	}
	return newFeed(sub), nil
}

// SetTyping overwrites the conversation's shared typing field: the encoded
// id of whoever is composing, or nothing. Last writer wins, there is no
// merge for simultaneous typists, and the value never expires on its own:
// a client that dies mid-type leaves a stale signal until the next write.
func (s *Service) SetTyping(ctx context.Context, ref domain.ConversationRef, userID string) error {
	var value any
	if userID != "" {
		value = userID
	}
	if err := s.store.Update(ctx, ref.Path, map[string]any{"typing": value}); err != nil {
		return fmt.Errorf("failed to update typing: %w", err)
	}
	metrics.Chat().TypingUpdates.Inc()
	return nil
}

// ClearTyping resets the typing signal.
func (s *Service) ClearTyping(ctx context.Context, ref domain.ConversationRef) error {
	return s.SetTyping(ctx, ref, "")
}

// TypingFromInput applies the keystroke rule: non-empty input marks the
// user as composing, an emptied input clears the signal.
func (s *Service) TypingFromInput(ctx context.Context, ref domain.ConversationRef, userID, input string) error {
	if len(input) > 0 {
		return s.SetTyping(ctx, ref, userID)
	}
	return s.ClearTyping(ctx, ref)
}

func (s *Service) compose(ref domain.ConversationRef, from domain.Session, to *domain.User) domain.Message {
	msg := domain.Message{
		Timestamp:   s.now().UnixMilli(),
		SenderID:    from.Email,
		SenderName:  from.DisplayName,
		SenderPhoto: from.PhotoURL,
		ChatRoomID:  ref.Key(),
	}
	if msg.SenderName == "" {
		// Group sends historically used the mailbox part of the address.
		msg.SenderName = strings.SplitN(from.Email, "@", 2)[0]
	}
	if to != nil {
		msg.ReceiverID = to.Email
		msg.ReceiverName = to.FullName
		msg.ReceiverPhoto = to.ProfileImage
	}
	return msg
}
