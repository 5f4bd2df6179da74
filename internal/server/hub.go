package server

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"shophub-realtime/internal/domain"
	"shophub-realtime/internal/events"
	"shophub-realtime/internal/services"
)

// ChatService is the slice of the conversation service the socket layer
// drives. Defined here so hub and client tests can substitute fakes.
type ChatService interface {
	GetOrCreate(ctx context.Context, shopperID, subject string) (domain.Conversation, error)
	SendMessage(ctx context.Context, in services.SendMessageInput) (domain.Message, error)
	History(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error)
	MarkAsRead(ctx context.Context, conversationID uuid.UUID, viewerID string, viewerIsOperator bool) (int64, error)
	AssignOperator(ctx context.Context, conversationID uuid.UUID, operatorID string) error
	Typing(conversationID uuid.UUID, userID string, isTyping bool)
}

// PresenceNotifier receives connection lifecycle signals.
type PresenceNotifier interface {
	Connected(ctx context.Context, userID, displayName, email, connectionTag string) error
	Disconnected(ctx context.Context, userID string) error
}

// Hub owns every live connection and the channel membership tables. All map
// mutation happens under one lock; fan-out holds the read side only. It is
// the process-local implementation of events.Publisher.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
	stopChan   chan struct{}
	wg         sync.WaitGroup
	isRunning  int32

	chat     ChatService
	presence PresenceNotifier
	logger   *SocketLogger
}

func NewHub(logger *SocketLogger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		channels:   make(map[string]map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		stopChan:   make(chan struct{}),
		logger:     logger,
	}
}

// AttachServices wires the hub's collaborators after construction. The hub
// is built first because the services need it as their publisher.
func (h *Hub) AttachServices(chat ChatService, presence PresenceNotifier) {
	h.chat = chat
	h.presence = presence
}

// Run processes register and unregister signals until Stop is called.
func (h *Hub) Run() {
	if !atomic.CompareAndSwapInt32(&h.isRunning, 0, 1) {
		return
	}
	h.wg.Add(1)
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case <-h.stopChan:
			h.closeAll()
			return
		}
	}
}

// Stop shuts the run loop down and closes every connection.
func (h *Hub) Stop() {
	if atomic.CompareAndSwapInt32(&h.isRunning, 1, 0) {
		close(h.stopChan)
		h.wg.Wait()
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.subscribeLocked(c, events.ChannelStorefront)
	h.subscribeLocked(c, kindChannel(c.kind))
	userID := c.userID
	h.mu.Unlock()

	h.logger.ClientConnected(c.id, userID)

	if c.conn != nil {
		go c.writePump()
		go c.readPump()
	}

	c.enqueue(events.New(events.EventConnectionSuccess, map[string]interface{}{
		"connectionId": c.id,
	}))

	if userID != "" && h.presence != nil {
		if err := h.presence.Connected(context.Background(), userID, c.userName, c.userEmail, c.id); err != nil {
			h.logger.Error("presence connect", err, c.id)
		}
	}
}

func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for name, members := range h.channels {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.channels, name)
		}
	}
	userID := c.userID
	h.mu.Unlock()

	c.close()
	h.logger.ClientDisconnected(c.id, userID)

	if userID != "" && h.presence != nil {
		if err := h.presence.Disconnected(context.Background(), userID); err != nil {
			h.logger.Error("presence disconnect", err, c.id)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.channels = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Publish hands the envelope to every connection subscribed to the channel
// and returns how many send queues accepted it. The count is a dispatch
// count, not a delivery receipt; a full queue drops the event for that
// connection. Publishing to a channel nobody joined returns 0.
func (h *Hub) Publish(channel string, evt events.Envelope) int {
	h.mu.RLock()
	members := h.channels[channel]
	targets := make([]*Client, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	dispatched := 0
	for _, c := range targets {
		if c.enqueue(evt) {
			dispatched++
		} else {
			h.logger.SlowConsumer(c.id, evt.Event)
		}
	}
	return dispatched
}

// DeclareKind moves the connection between the operator and shopper kind
// channels. Unknown kinds fall back to shopper. Re-declaring the same kind
// is a no-op.
func (h *Hub) DeclareKind(c *Client, kind string) {
	if kind != KindOperator {
		kind = KindShopper
	}

	h.mu.Lock()
	if c.kind == kind {
		h.mu.Unlock()
		return
	}
	h.unsubscribeLocked(c, kindChannel(c.kind))
	c.kind = kind
	h.subscribeLocked(c, kindChannel(kind))
	h.mu.Unlock()

	h.logger.KindDeclared(c.id, kind)
}

// BindIdentity attaches a user identity to the connection. The first bind
// raises presence; later binds only refresh the display fields.
func (h *Hub) BindIdentity(ctx context.Context, c *Client, userID, displayName, email string) {
	h.mu.Lock()
	already := c.userID != ""
	c.userID = userID
	c.userName = displayName
	c.userEmail = email
	h.mu.Unlock()

	if !already && h.presence != nil {
		if err := h.presence.Connected(ctx, userID, displayName, email, c.id); err != nil {
			h.logger.Error("presence connect", err, c.id)
		}
	}
}

// JoinChannel subscribes the connection to a named channel. Idempotent.
func (h *Hub) JoinChannel(c *Client, channel string) {
	h.mu.Lock()
	h.subscribeLocked(c, channel)
	h.mu.Unlock()
}

// LeaveChannel removes the connection from a channel. Unknown channel or
// non-member is a no-op.
func (h *Hub) LeaveChannel(c *Client, channel string) {
	h.mu.Lock()
	h.unsubscribeLocked(c, channel)
	h.mu.Unlock()
}

func (h *Hub) subscribeLocked(c *Client, channel string) {
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]*Client)
		h.channels[channel] = members
	}
	members[c.id] = c
}

func (h *Hub) unsubscribeLocked(c *Client, channel string) {
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChannelSize returns how many connections are subscribed to a channel.
func (h *Hub) ChannelSize(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func kindChannel(kind string) string {
	if kind == KindOperator {
		return events.ChannelOperators
	}
	return events.ChannelShoppers
}
