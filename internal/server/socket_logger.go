package server

import (
	"go.uber.org/zap"

	"shophub-realtime/pkg/logger"
)

// SocketLogger scopes log output for the socket layer under one component
// field so connection noise is easy to filter.
type SocketLogger struct {
	log *zap.Logger
}

func NewSocketLogger(l *logger.Logger) *SocketLogger {
	return &SocketLogger{
		log: l.Logger.With(zap.String("component", "websocket")),
	}
}

func (s *SocketLogger) ClientConnected(connectionID, userID string) {
	s.log.Info("client connected",
		zap.String("connection_id", connectionID),
		zap.String("user_id", userID),
	)
}

func (s *SocketLogger) ClientDisconnected(connectionID, userID string) {
	s.log.Info("client disconnected",
		zap.String("connection_id", connectionID),
		zap.String("user_id", userID),
	)
}

func (s *SocketLogger) KindDeclared(connectionID, kind string) {
	s.log.Info("kind declared",
		zap.String("connection_id", connectionID),
		zap.String("kind", kind),
	)
}

func (s *SocketLogger) UnknownEvent(connectionID, event string) {
	s.log.Warn("unknown inbound event",
		zap.String("connection_id", connectionID),
		zap.String("event", event),
	)
}

func (s *SocketLogger) SlowConsumer(connectionID, event string) {
	s.log.Warn("send queue full, event dropped",
		zap.String("connection_id", connectionID),
		zap.String("event", event),
	)
}

func (s *SocketLogger) Error(op string, err error, connectionID string) {
	s.log.Error(op,
		zap.Error(err),
		zap.String("connection_id", connectionID),
	)
}
