package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades /ws requests and registers the connection with
// the hub. Identity in the handshake query is optional; anonymous
// connections can still receive storefront broadcasts and bind identity
// later over the socket.
type WebSocketHandler struct {
	hub    *Hub
	logger *SocketLogger
}

func NewWebSocketHandler(hub *Hub, logger *SocketLogger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade", err, "")
		return
	}

	client := NewClient(h.hub, conn)
	if kind := c.Query("kind"); kind == KindOperator {
		client.kind = KindOperator
	}
	client.userID = c.Query("user_id")
	client.userName = c.Query("user_name")
	client.userEmail = c.Query("user_email")

	h.hub.register <- client
}
