package group

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"chatlink/internal/domain"
	"chatlink/internal/rtdb"
	apperrors "chatlink/pkg/errors"
)

// Service manages group conversations: creation, membership, and the list a
// given user belongs to. Group messages themselves go through the chat
// service against GroupConversation refs.
type Service struct {
	store rtdb.Store
	newID func() string
}

// NewService creates a group service.
func NewService(store rtdb.Store) *Service {
	return &Service{
		store: store,
		newID: func() string { return uuid.NewString() },
	}
}

// Create validates the form, generates an id, and writes the group record.
// The creator is always a participant, counted on top of the two or more
// selected contacts the form requires.
func (s *Service) Create(ctx context.Context, creatorID, name string, memberIDs []string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ValidationError("group name is required")
	}

	participants := map[string]bool{creatorID: true}
	selected := 0
	for _, id := range memberIDs {
		if id == "" || id == creatorID {
			continue
		}
		if !participants[id] {
			selected++
		}
		participants[id] = true
	}
	if selected < 2 {
		return nil, apperrors.ValidationError("select at least two contacts")
	}

	g := &domain.Group{
		ID:           s.newID(),
		GroupName:    name,
		Participants: participants,
	}
	if err := s.store.Set(ctx, "groups/"+g.ID, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return g, nil
}

// Get reads one group record.
func (s *Service) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	raw, err := s.store.Get(ctx, "groups/"+groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read group: %w", err)
	}
	if isNull(raw) {
		return nil, apperrors.NotFoundError("group")
	}
	var g domain.Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("corrupt group record: %w", err)
	}
	g.ID = groupID
	return &g, nil
}

// Leave removes exactly the caller's participant entry. Messages, the group
// name, and everyone else's membership are untouched; an empty group is left
// in place rather than garbage-collected.
func (s *Service) Leave(ctx context.Context, groupID, userID string) error {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if !g.HasParticipant(userID) {
		return apperrors.PermissionError("not a participant")
	}
	err = s.store.Update(ctx, "groups/"+groupID+"/participants", map[string]any{
		userID: nil,
	})
	if err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	return nil
}

// ListForUser scans the groups subtree and keeps those the user belongs to,
// sorted by name. The group list screen re-runs this on every visit.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	raw, err := s.store.Get(ctx, "groups")
	if err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}
	if isNull(raw) {
		return nil, nil
	}
	var records map[string]domain.Group
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("corrupt groups subtree: %w", err)
	}
	var mine []domain.Group
	for id, g := range records {
		if g.HasParticipant(userID) {
			g.ID = id
			mine = append(mine, g)
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		if mine[i].GroupName != mine[j].GroupName {
			return mine[i].GroupName < mine[j].GroupName
		}
		return mine[i].ID < mine[j].ID
	})
	return mine, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
