package server

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shophub-realtime/internal/domain"
	"shophub-realtime/internal/events"
	shophub_errors "shophub-realtime/pkg/errors"
)

func inbound(event string, data interface{}) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	return payload
}

func TestShopperJoinCreatesConversationAndReplays(t *testing.T) {
	hub, chat, presence := newTestHub(t)
	chat.history = []domain.Message{
		{ID: uuid.New(), ConversationID: chat.conversation.ID, SenderID: "shopper-1", Body: "earlier", CreatedAt: time.Now()},
	}

	c := register(t, hub)
	drainConnectionSuccess(t, c)

	c.handleInbound(inbound(events.EventChatUserJoined, map[string]interface{}{
		"userId":    "shopper-1",
		"userName":  "Ada",
		"userEmail": "ada@example.com",
	}))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventChatJoinedSuccess, evt.Event)

	data := evt.Data.(map[string]interface{})
	require.Equal(t, chat.conversation.ID.String(), data["conversationId"])
	messages := data["messages"].([]interface{})
	require.Len(t, messages, 1)

	require.Equal(t, 1, hub.ChannelSize(events.ConversationChannel(chat.conversation.ID.String())))
	require.Equal(t, 1, presence.connectedCount())
	require.Equal(t, chat.conversation.ID, c.conversationID)
}

func TestShopperSendGetsAck(t *testing.T) {
	hub, chat, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)

	c.handleInbound(inbound(events.EventChatSendMessage, map[string]interface{}{
		"userId":  "shopper-1",
		"message": "hello there",
	}))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventChatMessageSent, evt.Event)

	require.Len(t, chat.sent, 1)
	require.Equal(t, "hello there", chat.sent[0].Body)
	require.False(t, chat.sent[0].SentByOperator)
	require.Equal(t, chat.conversation.ID, chat.sent[0].ConversationID, "send without a prior join still lands in the shopper's conversation")
}

func TestOperatorJoinAssignsAndReplays(t *testing.T) {
	hub, chat, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)

	convID := chat.conversation.ID
	c.handleInbound(inbound(events.EventJoinChat, map[string]interface{}{
		"conversationId": convID.String(),
		"userId":         "op-1",
	}))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventChatJoinedSuccess, evt.Event)
	require.Equal(t, []string{"op-1"}, chat.assigned)
	require.Equal(t, 1, hub.ChannelSize(events.ConversationChannel(convID.String())))
}

func TestOperatorSendCarriesOwnerFlag(t *testing.T) {
	hub, chat, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)

	c.handleInbound(inbound(events.EventSendMessage, map[string]interface{}{
		"conversationId": chat.conversation.ID.String(),
		"userId":         "op-1",
		"message":        "how can I help?",
		"isOwner":        true,
	}))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventChatMessageSent, evt.Event)
	require.Len(t, chat.sent, 1)
	require.True(t, chat.sent[0].SentByOperator)
}

func TestMarkReadEventsReachService(t *testing.T) {
	hub, chat, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)
	c.conversationID = chat.conversation.ID

	c.handleInbound(inbound(events.EventChatMarkAsRead, map[string]interface{}{
		"userId": "shopper-1",
	}))
	c.handleInbound(inbound(events.EventMarkRead, map[string]interface{}{
		"conversationId": chat.conversation.ID.String(),
		"userId":         "op-1",
	}))

	require.Equal(t, []string{"shopper-1", "op-1"}, chat.markedRead)
}

func TestTypingEventsReachService(t *testing.T) {
	hub, chat, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)
	c.conversationID = chat.conversation.ID

	c.handleInbound(inbound(events.EventChatUserTyping, map[string]interface{}{
		"userId":   "shopper-1",
		"isTyping": true,
	}))
	c.handleInbound(inbound(events.EventTyping, map[string]interface{}{
		"conversationId": chat.conversation.ID.String(),
		"userId":         "op-1",
		"isTyping":       false,
	}))

	require.Equal(t, []string{"shopper-1", "op-1"}, chat.typing)
}

func TestDeclareKindOverTheWire(t *testing.T) {
	hub, _, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)

	c.handleInbound(inbound(events.EventDeclareKind, map[string]interface{}{
		"type": KindOperator,
	}))

	require.Equal(t, 1, hub.ChannelSize(events.ChannelOperators))
	require.Zero(t, hub.ChannelSize(events.ChannelShoppers))
}

func TestUnknownEventAnswersSenderOnly(t *testing.T) {
	hub, _, _ := newTestHub(t)

	c := register(t, hub)
	other := register(t, hub)
	drainConnectionSuccess(t, c)
	drainConnectionSuccess(t, other)

	c.handleInbound(inbound("no-such-event", nil))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventError, evt.Event)

	select {
	case payload := <-other.send:
		t.Fatalf("error leaked to another connection: %s", payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestServiceFailureBecomesErrorEnvelope(t *testing.T) {
	hub, chat, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)

	chat.sendErr = shophub_errors.ErrConversationClosed
	c.handleInbound(inbound(events.EventSendMessage, map[string]interface{}{
		"conversationId": chat.conversation.ID.String(),
		"userId":         "shopper-1",
		"message":        "too late",
	}))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventError, evt.Event)
	data := evt.Data.(map[string]interface{})
	require.Contains(t, fmt.Sprint(data["message"]), "closed")
}

func TestMalformedFrameAnswersWithError(t *testing.T) {
	hub, _, _ := newTestHub(t)
	c := register(t, hub)
	drainConnectionSuccess(t, c)

	c.handleInbound([]byte("{not json"))

	evt := readEnvelope(t, c)
	require.Equal(t, events.EventError, evt.Event)
}
