package middleware

import (
	"errors"
	"net/http"

	"shophub-realtime/internal/transport/httpdto"
	shophub_errors "shophub-realtime/pkg/errors"
	"shophub-realtime/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler converts errors attached to the gin context into the envelope
// the REST surface uses everywhere, mapping the domain sentinels to their
// HTTP statuses.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.ErrorfCtx(c.Request.Context(), "request error: %s", err)
		}

		status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
		switch {
		case errors.Is(err, shophub_errors.ErrNotFound):
			status, code = http.StatusNotFound, "NOT_FOUND"
		case errors.Is(err, shophub_errors.ErrInvalidInput):
			status, code = http.StatusBadRequest, "INVALID_INPUT"
		case errors.Is(err, shophub_errors.ErrConversationClosed):
			status, code = http.StatusConflict, "CONVERSATION_CLOSED"
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
