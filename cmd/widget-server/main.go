package main

import (
	"log"

	"reflet-widget/internal/api"
	"reflet-widget/internal/api/router"
	"reflet-widget/internal/database"
	"reflet-widget/internal/env"
	"reflet-widget/internal/queue"
	conversationservice "reflet-widget/internal/service/conversation"
	"reflet-widget/internal/websocket"

	"github.com/joho/godotenv"
)

// widget-server hosts the unauthenticated function endpoint the embed talks
// to. Messages posted here are published to the Redis relay so the agent
// dashboard sees them live.
func main() {
	godotenv.Load()
	env.Validate()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	websocket.InitRedis(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))
	reads := conversationservice.NewRedisReadStateStore(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))

	server := api.NewAPIServer(
		":82",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/widget/v1"),
		router.FunctionRoutes("/api/widget/v1", reads, websocket.Publisher{}),
	)

	server.Run()
}
