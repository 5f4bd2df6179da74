package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shophub-realtime/internal/services"
	"shophub-realtime/internal/transport/httpdto"
	shophub_errors "shophub-realtime/pkg/errors"
	"shophub-realtime/pkg/logger"
)

// SupportHandler serves the REST surface operator dashboards hydrate from
// before switching to the socket for live updates.
type SupportHandler struct {
	conversations *services.ConversationService
	presence      *services.PresenceService
	logger        *logger.Logger
}

func NewSupportHandler(conversations *services.ConversationService, presence *services.PresenceService, l *logger.Logger) *SupportHandler {
	return &SupportHandler{
		conversations: conversations,
		presence:      presence,
		logger:        l,
	}
}

// ListConversations returns open conversations, most recently active first.
func (h *SupportHandler) ListConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	conversations, err := h.conversations.ListOpen(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewConversationResponses(conversations)))
}

// ListMessages returns the most recent messages of a conversation, oldest
// first.
func (h *SupportHandler) ListMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_INPUT"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.conversations.History(c.Request.Context(), conversationID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewMessageResponses(messages)))
}

// CloseConversation marks a conversation closed and cancels any pending
// auto-reply.
func (h *SupportHandler) CloseConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_INPUT"))
		return
	}

	if err := h.conversations.Close(c.Request.Context(), conversationID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "closed"}))
}

// ListTyping returns who is typing in a conversation right now, from the
// short-TTL Redis sets.
func (h *SupportHandler) ListTyping(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_INPUT"))
		return
	}

	users, err := h.conversations.TypingUsers(c.Request.Context(), conversationID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(users))
}

// ListOnline returns every user with an active presence record.
func (h *SupportHandler) ListOnline(c *gin.Context) {
	users, err := h.presence.ListOnline(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewOnlineUserResponses(users)))
}

func (h *SupportHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shophub_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("conversation not found", "NOT_FOUND"))
	case errors.Is(err, shophub_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid input", "INVALID_INPUT"))
	case errors.Is(err, shophub_errors.ErrConversationClosed):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conversation is closed", "CONVERSATION_CLOSED"))
	default:
		h.logger.ErrorfCtx(c.Request.Context(), "support handler: %v", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
