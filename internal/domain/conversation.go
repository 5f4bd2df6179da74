package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation statuses. The open -> closed transition is terminal.
const (
	ConversationOpen   = "OPEN"
	ConversationClosed = "CLOSED"
)

// Conversation represents the conversations table. At most one OPEN
// conversation exists per shopper; closed rows are retained.
type Conversation struct {
	ID            uuid.UUID
	ShopperID     string
	OperatorID    sql.NullString
	Subject       string
	Status        string
	UnreadCount   int
	AutoRepliedAt sql.NullTime
	LastMessageAt sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message represents the messages table. Rows are immutable once written,
// except for the read-state columns.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Body           string
	MessageType    string
	AttachmentURL  sql.NullString
	SentByOperator bool
	IsAutoReply    bool
	IsRead         bool
	ReadAt         sql.NullTime
	CreatedAt      time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Message) TableName() string {
	return "messages"
}
