package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"shophub-realtime/internal/domain"
	"shophub-realtime/internal/events"
	"shophub-realtime/internal/repository"
	"shophub-realtime/pkg/logger"
)

// OnlineMirror reflects online membership into an ephemeral store.
type OnlineMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// PresenceService reference-counts live connections per user. A user with
// three tabs open goes offline only when the last one drops, so the operator
// dashboard never flickers on a reconnect.
type PresenceService struct {
	mu   sync.Mutex
	refs map[string]int

	presence  repository.PresenceRepository
	users     repository.UserRepository
	mirror    OnlineMirror
	publisher events.Publisher
	logger    *logger.Logger
}

func NewPresenceService(
	presence repository.PresenceRepository,
	users repository.UserRepository,
	mirror OnlineMirror,
	publisher events.Publisher,
	l *logger.Logger,
) *PresenceService {
	return &PresenceService{
		refs:      make(map[string]int),
		presence:  presence,
		users:     users,
		mirror:    mirror,
		publisher: publisher,
		logger:    l,
	}
}

// Connected registers one more live connection for the user. The first
// connection upserts the profile and presence row and announces
// chat:user-online to operators only; later connections just bump the count.
func (s *PresenceService) Connected(ctx context.Context, userID, displayName, email, connectionTag string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}

	s.mu.Lock()
	s.refs[userID]++
	first := s.refs[userID] == 1
	s.mu.Unlock()

	now := time.Now()
	if err := s.users.Upsert(ctx, domain.UserProfile{
		ID:          userID,
		DisplayName: displayName,
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		s.logger.Errorf("upsert profile for user %s: %v", userID, err)
	}
	if err := s.presence.Upsert(ctx, domain.PresenceRecord{
		UserID:        userID,
		ConnectionTag: connectionTag,
		LastSeen:      now,
		IsActive:      true,
	}); err != nil {
		return err
	}

	if !first {
		return nil
	}
	if s.mirror != nil {
		if err := s.mirror.SetOnline(ctx, userID); err != nil {
			s.logger.Errorf("mirror online for user %s: %v", userID, err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(events.ChannelOperators, events.New(events.EventChatUserOnline, map[string]interface{}{
			"userId": userID,
		}))
	}
	return nil
}

// Disconnected drops one connection for the user. Only the last drop marks
// the row inactive and announces chat:user-offline. A disconnect with no
// tracked connection is a no-op.
func (s *PresenceService) Disconnected(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}

	s.mu.Lock()
	n, ok := s.refs[userID]
	if !ok || n == 0 {
		s.mu.Unlock()
		return nil
	}
	n--
	last := n == 0
	if last {
		delete(s.refs, userID)
	} else {
		s.refs[userID] = n
	}
	s.mu.Unlock()

	if !last {
		return nil
	}

	if err := s.presence.SetInactive(ctx, userID, time.Now()); err != nil {
		s.logger.Errorf("mark presence inactive for user %s: %v", userID, err)
	}
	if s.mirror != nil {
		if err := s.mirror.SetOffline(ctx, userID); err != nil {
			s.logger.Errorf("mirror offline for user %s: %v", userID, err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(events.ChannelOperators, events.New(events.EventChatUserOffline, map[string]interface{}{
			"userId": userID,
		}))
	}
	return nil
}

// ListOnline returns users with an active presence row, most recent first.
func (s *PresenceService) ListOnline(ctx context.Context) ([]domain.OnlineUser, error) {
	return s.presence.ListActive(ctx)
}

// Connections reports the tracked live connection count for a user.
func (s *PresenceService) Connections(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[userID]
}
