package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shophub-realtime/internal/domain"
	"shophub-realtime/internal/events"
	"shophub-realtime/internal/services"
	shophub_errors "shophub-realtime/pkg/errors"
)

const (
	KindShopper  = "shopper"
	KindOperator = "operator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBufferSize = 256
	historyLimit   = 50
)

// Client is one live WebSocket connection. Inbound frames are handled one at
// a time on the read pump, so replies and acks keep the order the client
// sent them in. Identity and kind fields are guarded by the hub lock.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	kind      string
	userID    string
	userName  string
	userEmail string

	conversationID uuid.UUID

	sendMu sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		kind: KindShopper,
	}
}

// enqueue hands an envelope to the connection's send queue without blocking.
// Returns false when the queue is full or the connection already closed; the
// event is dropped for this connection only. The sendMu/closed pair keeps a
// concurrent close from turning this into a send on a closed channel.
func (c *Client) enqueue(evt events.Envelope) bool {
	payload, err := json.Marshal(evt)
	if err != nil {
		c.hub.logger.Error("marshal envelope", err, c.id)
		return false
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Error("read", err, c.id)
			}
			return
		}
		c.handleInbound(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			c.conn.Close()
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) handleInbound(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("malformed message")
		return
	}

	ctx := context.Background()

	switch msg.Event {
	case events.EventDeclareKind:
		c.onDeclareKind(msg.Data)
	case events.EventChatUserJoined:
		c.onShopperJoined(ctx, msg.Data)
	case events.EventChatSendMessage:
		c.onShopperSend(ctx, msg.Data)
	case events.EventChatMarkAsRead:
		c.onShopperMarkRead(ctx, msg.Data)
	case events.EventChatUserTyping:
		c.onShopperTyping(msg.Data)
	case events.EventJoinChat:
		c.onOperatorJoin(ctx, msg.Data)
	case events.EventSendMessage:
		c.onOperatorSend(ctx, msg.Data)
	case events.EventMarkRead:
		c.onOperatorMarkRead(ctx, msg.Data)
	case events.EventTyping:
		c.onOperatorTyping(msg.Data)
	default:
		c.hub.logger.UnknownEvent(c.id, msg.Event)
		c.sendError("unknown event: " + msg.Event)
	}
}

func (c *Client) onDeclareKind(data json.RawMessage) {
	var payload struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed declare-kind payload")
		return
	}
	c.hub.DeclareKind(c, payload.Type)
}

func (c *Client) onShopperJoined(ctx context.Context, data json.RawMessage) {
	var payload struct {
		UserID    string `json:"userId"`
		UserName  string `json:"userName"`
		UserEmail string `json:"userEmail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.UserID == "" {
		c.sendError("malformed chat:user-joined payload")
		return
	}

	c.hub.BindIdentity(ctx, c, payload.UserID, payload.UserName, payload.UserEmail)

	conv, err := c.hub.chat.GetOrCreate(ctx, payload.UserID, "")
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.conversationID = conv.ID
	c.hub.JoinChannel(c, events.ConversationChannel(conv.ID.String()))

	c.sendJoinedSuccess(ctx, conv.ID)
}

func (c *Client) onShopperSend(ctx context.Context, data json.RawMessage) {
	var payload struct {
		UserID        string `json:"userId"`
		Message       string `json:"message"`
		MessageType   string `json:"messageType"`
		AttachmentURL string `json:"attachmentUrl"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed chat:send-message payload")
		return
	}

	if c.conversationID == uuid.Nil {
		conv, err := c.hub.chat.GetOrCreate(ctx, payload.UserID, "")
		if err != nil {
			c.sendServiceError(err)
			return
		}
		c.conversationID = conv.ID
		c.hub.JoinChannel(c, events.ConversationChannel(conv.ID.String()))
	}

	msg, err := c.hub.chat.SendMessage(ctx, services.SendMessageInput{
		ConversationID: c.conversationID,
		SenderID:       payload.UserID,
		Body:           payload.Message,
		MessageType:    payload.MessageType,
		AttachmentURL:  payload.AttachmentURL,
		SentByOperator: false,
	})
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.enqueue(events.New(events.EventChatMessageSent, map[string]interface{}{
		"id":             msg.ID.String(),
		"conversationId": msg.ConversationID.String(),
	}))
}

func (c *Client) onShopperMarkRead(ctx context.Context, data json.RawMessage) {
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || c.conversationID == uuid.Nil {
		c.sendError("malformed chat:mark-as-read payload")
		return
	}
	if _, err := c.hub.chat.MarkAsRead(ctx, c.conversationID, payload.UserID, false); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) onShopperTyping(data json.RawMessage) {
	var payload struct {
		UserID   string `json:"userId"`
		IsTyping bool   `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || c.conversationID == uuid.Nil {
		return
	}
	c.hub.chat.Typing(c.conversationID, payload.UserID, payload.IsTyping)
}

func (c *Client) onOperatorJoin(ctx context.Context, data json.RawMessage) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		UserID         string `json:"userId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed join-chat payload")
		return
	}
	convID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		c.sendError("invalid conversation id")
		return
	}

	if payload.UserID != "" {
		c.hub.BindIdentity(ctx, c, payload.UserID, c.userName, c.userEmail)
		if err := c.hub.chat.AssignOperator(ctx, convID, payload.UserID); err != nil && !errors.Is(err, shophub_errors.ErrNotFound) {
			c.hub.logger.Error("assign operator", err, c.id)
		}
	}
	c.conversationID = convID
	c.hub.JoinChannel(c, events.ConversationChannel(convID.String()))

	c.sendJoinedSuccess(ctx, convID)
}

func (c *Client) onOperatorSend(ctx context.Context, data json.RawMessage) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		UserID         string `json:"userId"`
		Message        string `json:"message"`
		MessageType    string `json:"messageType"`
		AttachmentURL  string `json:"attachmentUrl"`
		IsOwner        bool   `json:"isOwner"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed send-message payload")
		return
	}
	convID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		c.sendError("invalid conversation id")
		return
	}

	msg, err := c.hub.chat.SendMessage(ctx, services.SendMessageInput{
		ConversationID: convID,
		SenderID:       payload.UserID,
		Body:           payload.Message,
		MessageType:    payload.MessageType,
		AttachmentURL:  payload.AttachmentURL,
		SentByOperator: payload.IsOwner,
	})
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.enqueue(events.New(events.EventChatMessageSent, map[string]interface{}{
		"id":             msg.ID.String(),
		"conversationId": msg.ConversationID.String(),
	}))
}

func (c *Client) onOperatorMarkRead(ctx context.Context, data json.RawMessage) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		UserID         string `json:"userId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed mark-read payload")
		return
	}
	convID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		c.sendError("invalid conversation id")
		return
	}
	if _, err := c.hub.chat.MarkAsRead(ctx, convID, payload.UserID, true); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) onOperatorTyping(data json.RawMessage) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		UserID         string `json:"userId"`
		IsTyping       bool   `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	convID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		return
	}
	c.hub.chat.Typing(convID, payload.UserID, payload.IsTyping)
}

func (c *Client) sendJoinedSuccess(ctx context.Context, conversationID uuid.UUID) {
	history, err := c.hub.chat.History(ctx, conversationID, historyLimit)
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.enqueue(events.New(events.EventChatJoinedSuccess, map[string]interface{}{
		"conversationId": conversationID.String(),
		"messages":       messagePayloads(history),
	}))
}

// sendError delivers an error envelope to this connection only. Failures
// never fan out to other subscribers.
func (c *Client) sendError(message string) {
	c.enqueue(events.New(events.EventError, map[string]interface{}{
		"message": message,
	}))
}

func (c *Client) sendServiceError(err error) {
	switch {
	case errors.Is(err, shophub_errors.ErrNotFound):
		c.sendError("conversation not found")
	case errors.Is(err, shophub_errors.ErrConversationClosed):
		c.sendError("conversation is closed")
	case errors.Is(err, shophub_errors.ErrInvalidInput):
		c.sendError("invalid input")
	default:
		c.hub.logger.Error("service call", err, c.id)
		c.sendError("internal error")
	}
}

func messagePayloads(messages []domain.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		data := map[string]interface{}{
			"id":             m.ID.String(),
			"conversationId": m.ConversationID.String(),
			"userId":         m.SenderID,
			"message":        m.Body,
			"messageType":    m.MessageType,
			"isOwner":        m.SentByOperator,
			"isAutoReply":    m.IsAutoReply,
			"isRead":         m.IsRead,
			"createdAt":      m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.AttachmentURL.Valid {
			data["attachmentUrl"] = m.AttachmentURL.String
		}
		out = append(out, data)
	}
	return out
}
