package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"shophub-realtime/internal/domain"
	"shophub-realtime/internal/events"
	"shophub-realtime/internal/repository"
	shophub_errors "shophub-realtime/pkg/errors"
	"shophub-realtime/pkg/logger"
)

const DefaultSubject = "Support request"

// TypingMirror keeps an ephemeral record of who is typing in a conversation.
type TypingMirror interface {
	TrackTyping(ctx context.Context, conversationID, userID string, isTyping bool) error
	TypingUsers(ctx context.Context, conversationID string) ([]string, error)
}

// SendMessageInput carries one send request through validation, persistence
// and fan-out.
type SendMessageInput struct {
	ConversationID uuid.UUID
	SenderID       string
	Body           string
	MessageType    string
	AttachmentURL  string
	SentByOperator bool
	IsAutoReply    bool
}

// ConversationService is the only writer of chat data. Every mutation
// persists before it publishes, so any event a client observes already
// survived a store write.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	publisher     events.Publisher
	typing        TypingMirror
	responder     *AutoResponder
	logger        *logger.Logger
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	publisher events.Publisher,
	typing TypingMirror,
	responder *AutoResponder,
	l *logger.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		typing:        typing,
		responder:     responder,
		logger:        l,
	}
}

// GetOrCreate returns the shopper's open conversation, creating one when none
// exists. A partial unique index on (shopper_id) WHERE status = 'OPEN' backs
// the at-most-one guarantee under concurrent joins.
func (s *ConversationService) GetOrCreate(ctx context.Context, shopperID, subject string) (domain.Conversation, error) {
	if strings.TrimSpace(shopperID) == "" {
		return domain.Conversation{}, shophub_errors.ErrInvalidInput
	}

	conv, err := s.conversations.GetOpenByShopper(ctx, shopperID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, shophub_errors.ErrNotFound) {
		return domain.Conversation{}, err
	}

	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	now := time.Now()
	conv = domain.Conversation{
		ID:        uuid.New(),
		ShopperID: shopperID,
		Subject:   subject,
		Status:    domain.ConversationOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Create(ctx, &conv); err != nil {
		if errors.Is(err, shophub_errors.ErrAlreadyExists) {
			// Lost the race against another connection of the same shopper.
			return s.conversations.GetOpenByShopper(ctx, shopperID)
		}
		return domain.Conversation{}, err
	}

	if s.publisher != nil {
		s.publisher.Publish(events.ChannelOperators, events.New(events.EventAdminConversation, map[string]interface{}{
			"conversationId": conv.ID.String(),
			"shopperId":      conv.ShopperID,
			"subject":        conv.Subject,
			"status":         conv.Status,
		}))
	}
	return conv, nil
}

// SendMessage validates, persists, then publishes. The first shopper message
// of a conversation arms the auto-responder exactly once: the durable
// auto_replied_at flag is claimed before the timer is scheduled, so a restart
// or a concurrent send can never queue a second canned reply.
func (s *ConversationService) SendMessage(ctx context.Context, in SendMessageInput) (domain.Message, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" || strings.TrimSpace(in.SenderID) == "" {
		return domain.Message{}, shophub_errors.ErrInvalidInput
	}

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if conv.Status == domain.ConversationClosed {
		return domain.Message{}, shophub_errors.ErrConversationClosed
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = "text"
	}
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Body:           body,
		MessageType:    msgType,
		SentByOperator: in.SentByOperator,
		IsAutoReply:    in.IsAutoReply,
		CreatedAt:      time.Now(),
	}
	if in.AttachmentURL != "" {
		msg.AttachmentURL = sql.NullString{String: in.AttachmentURL, Valid: true}
	}

	if err := s.messages.Create(ctx, &msg); err != nil {
		return domain.Message{}, err
	}
	if err := s.conversations.TouchLastMessage(ctx, conv.ID, msg.CreatedAt); err != nil {
		s.logger.Errorf("touch last message for conversation %s: %v", conv.ID, err)
	}
	if !in.SentByOperator {
		if err := s.conversations.IncrementUnread(ctx, conv.ID); err != nil {
			s.logger.Errorf("bump unread count for conversation %s: %v", conv.ID, err)
		}
	}

	s.publishMessage(conv, msg)

	if !in.SentByOperator {
		claimed, err := s.conversations.ClaimAutoReply(ctx, conv.ID, time.Now())
		if err != nil {
			s.logger.Errorf("claim auto-reply for conversation %s: %v", conv.ID, err)
		} else if claimed && s.responder != nil {
			s.responder.Schedule(conv.ID)
		}
	}

	return msg, nil
}

func (s *ConversationService) publishMessage(conv domain.Conversation, msg domain.Message) {
	if s.publisher == nil {
		return
	}

	name := events.EventChatNewMessage
	if msg.SentByOperator {
		name = events.EventChatAdminMessage
	}
	data := map[string]interface{}{
		"id":             msg.ID.String(),
		"conversationId": msg.ConversationID.String(),
		"userId":         msg.SenderID,
		"message":        msg.Body,
		"messageType":    msg.MessageType,
		"isOwner":        msg.SentByOperator,
		"isAutoReply":    msg.IsAutoReply,
		"createdAt":      msg.CreatedAt.UTC().Format(time.RFC3339),
	}
	if msg.AttachmentURL.Valid {
		data["attachmentUrl"] = msg.AttachmentURL.String
	}
	s.publisher.Publish(events.ConversationChannel(msg.ConversationID.String()), events.New(name, data))

	if !msg.SentByOperator {
		s.publisher.Publish(events.ChannelOperators, events.New(events.EventAdminNewMessage, map[string]interface{}{
			"conversationId": msg.ConversationID.String(),
			"shopperId":      conv.ShopperID,
			"preview":        msg.Body,
		}))
	}
}

// History returns the most recent limit messages, oldest first, for hydrating
// a newly joined client.
func (s *ConversationService) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.messages.History(ctx, conversationID, limit)
}

// MarkAsRead flips every unread message not authored by the viewer. A second
// call with nothing newly unread touches zero rows and publishes nothing.
func (s *ConversationService) MarkAsRead(ctx context.Context, conversationID uuid.UUID, viewerID string, viewerIsOperator bool) (int64, error) {
	if strings.TrimSpace(viewerID) == "" {
		return 0, shophub_errors.ErrInvalidInput
	}

	n, err := s.messages.MarkAllRead(ctx, conversationID, viewerID, time.Now())
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if viewerIsOperator {
		// Recompute from the messages table instead of assuming zero, so the
		// stored counter converges even after a racy write.
		remaining, err := s.messages.CountUnread(ctx, conversationID, viewerID)
		if err != nil {
			s.logger.Errorf("recount unread for conversation %s: %v", conversationID, err)
		} else if err := s.conversations.SetUnreadCount(ctx, conversationID, remaining); err != nil {
			s.logger.Errorf("reset unread count for conversation %s: %v", conversationID, err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(events.ConversationChannel(conversationID.String()), events.New(events.EventChatMessagesRead, map[string]interface{}{
			"conversationId": conversationID.String(),
			"userId":         viewerID,
			"count":          n,
		}))
	}
	return n, nil
}

// Close marks the conversation closed and cancels any pending auto-reply.
// Authorization is the caller's responsibility.
func (s *ConversationService) Close(ctx context.Context, conversationID uuid.UUID) error {
	if err := s.conversations.Close(ctx, conversationID); err != nil {
		return err
	}
	if s.responder != nil {
		s.responder.Cancel(conversationID)
	}
	if s.publisher != nil {
		s.publisher.Publish(events.ChannelOperators, events.New(events.EventAdminConversation, map[string]interface{}{
			"conversationId": conversationID.String(),
			"status":         domain.ConversationClosed,
		}))
	}
	return nil
}

// AssignOperator records which operator picked the conversation up.
func (s *ConversationService) AssignOperator(ctx context.Context, conversationID uuid.UUID, operatorID string) error {
	return s.conversations.AssignOperator(ctx, conversationID, operatorID)
}

// ListOpen returns open conversations, most recently active first.
func (s *ConversationService) ListOpen(ctx context.Context, limit int) ([]domain.Conversation, error) {
	return s.conversations.ListOpen(ctx, limit)
}

// TypingUsers reports who is currently typing in a conversation, backed by
// the short-TTL Redis sets. Without a mirror configured the answer is empty.
func (s *ConversationService) TypingUsers(ctx context.Context, conversationID uuid.UUID) ([]string, error) {
	if s.typing == nil {
		return nil, nil
	}
	return s.typing.TypingUsers(ctx, conversationID.String())
}

// Typing republishes an ephemeral typing signal to the conversation channel.
// Nothing is persisted; the Redis mirror only backs dashboard queries.
func (s *ConversationService) Typing(conversationID uuid.UUID, userID string, isTyping bool) {
	if s.typing != nil {
		if err := s.typing.TrackTyping(context.Background(), conversationID.String(), userID, isTyping); err != nil {
			s.logger.Errorf("track typing for conversation %s: %v", conversationID, err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(events.ConversationChannel(conversationID.String()), events.New(events.EventChatUserTyping, map[string]interface{}{
			"conversationId": conversationID.String(),
			"userId":         userID,
			"isTyping":       isTyping,
		}))
	}
}
