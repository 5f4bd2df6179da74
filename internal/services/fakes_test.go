package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shophub-realtime/internal/domain"
	"shophub-realtime/internal/events"
	shophub_errors "shophub-realtime/pkg/errors"
	"shophub-realtime/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.DevelopmentMode)
}

type publishCall struct {
	channel string
	evt     events.Envelope
}

type recordingPublisher struct {
	mu          sync.Mutex
	calls       []publishCall
	subscribers int
	onPublish   func(channel string, evt events.Envelope)
}

func (p *recordingPublisher) Publish(channel string, evt events.Envelope) int {
	p.mu.Lock()
	p.calls = append(p.calls, publishCall{channel: channel, evt: evt})
	hook := p.onPublish
	p.mu.Unlock()
	if hook != nil {
		hook(channel, evt)
	}
	return p.subscribers
}

func (p *recordingPublisher) published(event string) []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishCall
	for _, c := range p.calls {
		if c.evt.Event == event {
			out = append(out, c)
		}
	}
	return out
}

func (p *recordingPublisher) count(event string) int {
	return len(p.published(event))
}

type fakeTypingMirror struct {
	mu    sync.Mutex
	users map[string]map[string]bool
}

func newFakeTypingMirror() *fakeTypingMirror {
	return &fakeTypingMirror{users: make(map[string]map[string]bool)}
}

func (m *fakeTypingMirror) TrackTyping(_ context.Context, conversationID, userID string, isTyping bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.users[conversationID]
	if !ok {
		set = make(map[string]bool)
		m.users[conversationID] = set
	}
	if isTyping {
		set[userID] = true
	} else {
		delete(set, userID)
	}
	return nil
}

func (m *fakeTypingMirror) TypingUsers(_ context.Context, conversationID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for userID := range m.users[conversationID] {
		out = append(out, userID)
	}
	return out, nil
}

type fakeConversationRepo struct {
	mu             sync.Mutex
	byID           map[uuid.UUID]domain.Conversation
	failCreate     error
	missLookupOnce bool
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{byID: make(map[uuid.UUID]domain.Conversation)}
}

func (r *fakeConversationRepo) Create(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		err := r.failCreate
		r.failCreate = nil
		return err
	}
	for _, existing := range r.byID {
		if existing.ShopperID == c.ShopperID && existing.Status == domain.ConversationOpen {
			return shophub_errors.ErrAlreadyExists
		}
	}
	r.byID[c.ID] = *c
	return nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.Conversation{}, shophub_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeConversationRepo) GetOpenByShopper(_ context.Context, shopperID string) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missLookupOnce {
		r.missLookupOnce = false
		return domain.Conversation{}, shophub_errors.ErrNotFound
	}
	for _, c := range r.byID {
		if c.ShopperID == shopperID && c.Status == domain.ConversationOpen {
			return c, nil
		}
	}
	return domain.Conversation{}, shophub_errors.ErrNotFound
}

func (r *fakeConversationRepo) ListOpen(_ context.Context, _ int) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.byID {
		if c.Status == domain.ConversationOpen {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) Close(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.Status != domain.ConversationOpen {
		return shophub_errors.ErrNotFound
	}
	c.Status = domain.ConversationClosed
	r.byID[id] = c
	return nil
}

func (r *fakeConversationRepo) AssignOperator(_ context.Context, id uuid.UUID, operatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return shophub_errors.ErrNotFound
	}
	c.OperatorID.String = operatorID
	c.OperatorID.Valid = true
	r.byID[id] = c
	return nil
}

func (r *fakeConversationRepo) ClaimAutoReply(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return false, shophub_errors.ErrNotFound
	}
	if c.AutoRepliedAt.Valid {
		return false, nil
	}
	c.AutoRepliedAt.Time = at
	c.AutoRepliedAt.Valid = true
	r.byID[id] = c
	return true, nil
}

func (r *fakeConversationRepo) TouchLastMessage(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return shophub_errors.ErrNotFound
	}
	c.LastMessageAt.Time = at
	c.LastMessageAt.Valid = true
	r.byID[id] = c
	return nil
}

func (r *fakeConversationRepo) IncrementUnread(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return shophub_errors.ErrNotFound
	}
	c.UnreadCount++
	r.byID[id] = c
	return nil
}

func (r *fakeConversationRepo) SetUnreadCount(_ context.Context, id uuid.UUID, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return shophub_errors.ErrNotFound
	}
	c.UnreadCount = int(count)
	r.byID[id] = c
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessageRepo) History(_ context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			all = append(all, m)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeMessageRepo) MarkAllRead(_ context.Context, conversationID uuid.UUID, viewerID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationID == conversationID && !m.IsRead && m.SenderID != viewerID {
			m.IsRead = true
			m.ReadAt.Time = at
			m.ReadAt.Valid = true
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) CountUnread(_ context.Context, conversationID uuid.UUID, viewerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID && !m.IsRead && m.SenderID != viewerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) all(conversationID uuid.UUID) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

type fakePresenceRepo struct {
	mu   sync.Mutex
	rows map[string]domain.PresenceRecord
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{rows: make(map[string]domain.PresenceRecord)}
}

func (r *fakePresenceRepo) Upsert(_ context.Context, rec domain.PresenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rec.UserID] = rec
	return nil
}

func (r *fakePresenceRepo) SetInactive(_ context.Context, userID string, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[userID]
	if !ok {
		return shophub_errors.ErrNotFound
	}
	rec.IsActive = false
	rec.LastSeen = lastSeen
	r.rows[userID] = rec
	return nil
}

func (r *fakePresenceRepo) ListActive(_ context.Context) ([]domain.OnlineUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OnlineUser
	for _, rec := range r.rows {
		if rec.IsActive {
			out = append(out, domain.OnlineUser{UserID: rec.UserID, LastSeen: rec.LastSeen})
		}
	}
	return out, nil
}

func (r *fakePresenceRepo) record(userID string) (domain.PresenceRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[userID]
	return rec, ok
}

type fakeUserRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{profiles: make(map[string]domain.UserProfile)}
}

func (r *fakeUserRepo) Upsert(_ context.Context, profile domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.ID] = profile
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return domain.UserProfile{}, shophub_errors.ErrNotFound
	}
	return p, nil
}
