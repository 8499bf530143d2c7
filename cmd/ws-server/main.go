package main

import (
	"log"

	"reflet-widget/internal/api"
	"reflet-widget/internal/api/router"
	"reflet-widget/internal/database"
	"reflet-widget/internal/env"
	"reflet-widget/internal/queue"
	"reflet-widget/internal/websocket"

	"github.com/joho/godotenv"
)

// ws-server relays conversation events to connected agent dashboards. Rooms
// and their Redis subscriptions are created lazily on the first join.
func main() {
	godotenv.Load()
	env.Validate()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	websocket.InitRedis(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))

	hub := websocket.NewHub()
	go hub.Run()
	handler := websocket.NewHandler(hub)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		router.UtilsRoutes("/api/ws/v1"),
		router.ConversationWebsocketRoutes("/api/ws/v1"),
	)

	server.Run()
}
