package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	"chatlink/pkg/logger"
)

// Contact is a user record together with its key in the tree.
type Contact struct {
	Key string
	domain.User
}

// Service maintains the contact roster: the list of every registered user,
// presence flips, and profile edits.
type Service struct {
	store            rtdb.Store
	propagateProfile bool
	now              func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithProfilePropagation turns on the phone-matched cross-record profile
// sync performed after an edit. Off unless explicitly enabled; the scan has
// no atomicity across records.
func WithProfilePropagation() Option {
	return func(s *Service) { s.propagateProfile = true }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a roster service.
func NewService(store rtdb.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contacts lists every registered user except the caller, sorted by name.
func (s *Service) Contacts(ctx context.Context, selfID string) ([]Contact, error) {
	raw, err := s.store.Get(ctx, "users")
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	contacts, err := decodeRoster(raw)
	if err != nil {
		return nil, err
	}
	filtered := contacts[:0]
	for _, c := range contacts {
		if c.Key != selfID {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Lookup returns a single contact record, or a nil contact when the key is
// not registered.
func (s *Service) Lookup(ctx context.Context, userID string) (*domain.User, error) {
	raw, err := s.store.Get(ctx, "users/"+userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read contact: %w", err)
	}
	if isNull(raw) {
		return nil, nil
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("corrupt contact record: %w", err)
	}
	return &u, nil
}

// Subscribe opens a live feed over the whole roster. The contact-list view
// re-renders from each snapshot, so presence flips show up without a refresh.
func (s *Service) Subscribe(ctx context.Context, selfID string) (*Feed, error) {
	sub, err := s.store.Subscribe(ctx, "users")
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to roster: %w", err)
	}
	return newFeed(sub, selfID), nil
}

// SetActive marks the user online. Called when their profile view loads.
func (s *Service) SetActive(ctx context.Context, userID string) error {
	err := s.store.Update(ctx, "users/"+userID, map[string]any{"active": true})
	if err != nil {
		return fmt.Errorf("failed to set active: %w", err)
	}
	return nil
}

// SetOffline marks the user offline and stamps when they were last seen.
func (s *Service) SetOffline(ctx context.Context, userID string) error {
	err := s.store.Update(ctx, "users/"+userID, map[string]any{
		"active":     false,
		"lastOnline": s.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to set offline: %w", err)
	}
	return nil
}

// ProfileUpdate carries the editable profile fields. Nil means leave the
// field alone; updates are always per-field merges, never whole-object
// overwrites, so concurrent edits of different fields both survive.
type ProfileUpdate struct {
	FullName     *string
	Phone        *string
	ProfileImage *string
}

func (u ProfileUpdate) fields() map[string]any {
	fields := make(map[string]any)
	if u.FullName != nil {
		fields["fullName"] = *u.FullName
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.ProfileImage != nil {
		fields["ProfileImage"] = *u.ProfileImage
	}
	return fields
}

// UpdateProfile merges the given fields into the user's record. When
// propagation is enabled it then scans the roster and applies the same merge
// to every other record sharing the user's phone number.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) error {
	fields := update.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Update(ctx, "users/"+userID, fields); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if !s.propagateProfile {
		return nil
	}
	s.propagate(ctx, userID, fields)
	return nil
}

// propagate best-effort copies the merged fields onto phone-matched records.
// Failures are logged and skipped; the primary update already succeeded.
func (s *Service) propagate(ctx context.Context, userID string, fields map[string]any) {
	self, err := s.Lookup(ctx, userID)
	if err != nil || self == nil || self.Phone == "" {
		return
	}
	contacts, err := s.Contacts(ctx, userID)
	if err != nil {
		logger.Warn("profile propagation scan failed", zap.Error(err))
		return
	}
	for _, c := range contacts {
		if c.Phone != self.Phone {
			continue
		}
		if err := s.store.Update(ctx, "users/"+c.Key, fields); err != nil {
			logger.Warn("profile propagation write failed",
				zap.String("contact", c.Key),
				zap.Error(err))
		}
	}
}

func decodeRoster(raw json.RawMessage) ([]Contact, error) {
	if isNull(raw) {
		return nil, nil
	}
	var records map[string]domain.User
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("corrupt roster: %w", err)
	}
	contacts := make([]Contact, 0, len(records))
	for key, user := range records {
		contacts = append(contacts, Contact{Key: key, User: user})
	}
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].FullName != contacts[j].FullName {
			return contacts[i].FullName < contacts[j].FullName
		}
		return contacts[i].Key < contacts[j].Key
	})
	return contacts, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
