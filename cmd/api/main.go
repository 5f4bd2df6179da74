package main

import (
	"time"

	"go.uber.org/zap"

	"shophub-realtime/config"
	"shophub-realtime/internal/handler"
	"shophub-realtime/internal/redis"
	"shophub-realtime/internal/repository"
	"shophub-realtime/internal/server"
	"shophub-realtime/internal/services"
	"shophub-realtime/pkg/database"
	"shophub-realtime/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	zap.ReplaceGlobals(l.Logger)

	database.Connect(cfg)
	defer database.Close()

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	presenceStore := redis.NewPresenceStore(redis.GetClient(), 0)

	repos := repository.New(database.DB)

	// The hub is built first because the services publish through it.
	socketLogger := server.NewSocketLogger(l)
	hub := server.NewHub(socketLogger)

	responder := services.NewAutoResponder(
		time.Duration(cfg.AutoReplyDelayMs)*time.Millisecond,
		cfg.AutoReplyBody,
		l,
	)
	conversationService := services.NewConversationService(
		repos.Conversations,
		repos.Messages,
		hub,
		presenceStore,
		responder,
		l,
	)
	responder.BindSender(conversationService)

	presenceService := services.NewPresenceService(
		repos.Presence,
		repos.Users,
		presenceStore,
		hub,
		l,
	)

	hub.AttachServices(conversationService, presenceService)
	go hub.Run()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Support:   handler.NewSupportHandler(conversationService, presenceService, l),
		WebSocket: server.NewWebSocketHandler(hub, socketLogger),
	})

	if err := srv.Start(); err != nil {
		l.Errorf("server exited with error: %v", err)
	}

	hub.Stop()
	responder.Stop()
}
