package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"shophub-realtime/internal/domain"
	shophub_errors "shophub-realtime/pkg/errors"
	"shophub-realtime/pkg/logger"
)

// AutoReplySenderID is the author recorded on canned replies.
const AutoReplySenderID = "owner"

// MessageSender is the slice of the conversation service the responder needs
// to deliver its canned reply.
type MessageSender interface {
	SendMessage(ctx context.Context, in SendMessageInput) (domain.Message, error)
}

// AutoResponder owns one pending timer per conversation. A claim against the
// durable auto_replied_at column happens before Schedule is ever called, so
// the in-memory map only guards against double-scheduling inside a single
// process lifetime.
type AutoResponder struct {
	delay  time.Duration
	body   string
	logger *logger.Logger

	mu      sync.Mutex
	sender  MessageSender
	pending map[uuid.UUID]context.CancelFunc

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewAutoResponder(delay time.Duration, body string, l *logger.Logger) *AutoResponder {
	ctx, cancel := context.WithCancel(context.Background())
	return &AutoResponder{
		delay:   delay,
		body:    body,
		logger:  l,
		pending: make(map[uuid.UUID]context.CancelFunc),
		baseCtx: ctx,
		stop:    cancel,
	}
}

// BindSender breaks the construction cycle between the responder and the
// conversation service. Must be called before any Schedule.
func (a *AutoResponder) BindSender(sender MessageSender) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sender = sender
}

// Schedule arms the one-shot reply timer for a conversation. A second call
// while a timer is pending is a no-op.
func (a *AutoResponder) Schedule(conversationID uuid.UUID) {
	a.mu.Lock()
	if _, ok := a.pending[conversationID]; ok {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(a.baseCtx)
	a.pending[conversationID] = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.clear(conversationID)

		timer := time.NewTimer(a.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		a.mu.Lock()
		sender := a.sender
		a.mu.Unlock()
		if sender == nil {
			a.logger.Warnf("auto-reply for conversation %s dropped: no sender bound", conversationID)
			return
		}

		_, err := sender.SendMessage(context.Background(), SendMessageInput{
			ConversationID: conversationID,
			SenderID:       AutoReplySenderID,
			Body:           a.body,
			SentByOperator: true,
			IsAutoReply:    true,
		})
		if err != nil && !errors.Is(err, shophub_errors.ErrConversationClosed) {
			a.logger.Errorf("auto-reply for conversation %s: %v", conversationID, err)
		}
	}()
}

// Cancel aborts the pending reply for a conversation, if any.
func (a *AutoResponder) Cancel(conversationID uuid.UUID) {
	a.mu.Lock()
	cancel, ok := a.pending[conversationID]
	a.mu.Unlock()
	if ok {
		cancel()
	}
}

// Pending reports whether a reply timer is currently armed.
func (a *AutoResponder) Pending(conversationID uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[conversationID]
	return ok
}

// Stop cancels every pending timer and waits for the workers to drain.
func (a *AutoResponder) Stop() {
	a.stop()
	a.wg.Wait()
}

func (a *AutoResponder) clear(conversationID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, conversationID)
}
