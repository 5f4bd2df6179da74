package httpdto

import (
	"time"

	"shophub-realtime/internal/domain"
)

type ConversationResponse struct {
	ID            string     `json:"id"`
	ShopperID     string     `json:"shopperId"`
	OperatorID    string     `json:"operatorId,omitempty"`
	Subject       string     `json:"subject"`
	Status        string     `json:"status"`
	UnreadCount   int        `json:"unreadCount"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func NewConversationResponse(c domain.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:          c.ID.String(),
		ShopperID:   c.ShopperID,
		Subject:     c.Subject,
		Status:      c.Status,
		UnreadCount: c.UnreadCount,
		CreatedAt:   c.CreatedAt,
	}
	if c.OperatorID.Valid {
		resp.OperatorID = c.OperatorID.String
	}
	if c.LastMessageAt.Valid {
		t := c.LastMessageAt.Time
		resp.LastMessageAt = &t
	}
	return resp
}

func NewConversationResponses(conversations []domain.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, NewConversationResponse(c))
	}
	return out
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"message"`
	MessageType    string    `json:"messageType"`
	AttachmentURL  string    `json:"attachmentUrl,omitempty"`
	SentByOperator bool      `json:"isOwner"`
	IsAutoReply    bool      `json:"isAutoReply"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewMessageResponse(m domain.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID,
		Body:           m.Body,
		MessageType:    m.MessageType,
		SentByOperator: m.SentByOperator,
		IsAutoReply:    m.IsAutoReply,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
	if m.AttachmentURL.Valid {
		resp.AttachmentURL = m.AttachmentURL.String
	}
	return resp
}

func NewMessageResponses(messages []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, NewMessageResponse(m))
	}
	return out
}

type OnlineUserResponse struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
}

func NewOnlineUserResponses(users []domain.OnlineUser) []OnlineUserResponse {
	out := make([]OnlineUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, OnlineUserResponse{
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			LastSeen:    u.LastSeen,
		})
	}
	return out
}
