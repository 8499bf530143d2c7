package main

import (
	"flag"
	"fmt"
	"log"

	"reflet-widget/internal/api"
	"reflet-widget/internal/api/router"
	"reflet-widget/internal/database"
	"reflet-widget/internal/env"
	internaljwt "reflet-widget/internal/jwt"
	"reflet-widget/internal/queue"
	conversationservice "reflet-widget/internal/service/conversation"
	"reflet-widget/internal/websocket"

	"github.com/joho/godotenv"
)

// agent-server hosts the authenticated dashboard API: conversation inbox,
// replies and widget settings. Run with -mint-token to print an agent JWT
// for local development instead of starting the server.
func main() {
	mintToken := flag.Bool("mint-token", false, "print an agent JWT and exit")
	agentID := flag.String("agent-id", "", "agent id claim for -mint-token")
	email := flag.String("email", "", "email claim for -mint-token")
	flag.Parse()

	godotenv.Load()
	env.Validate()

	if *mintToken {
		if *agentID == "" {
			log.Fatal("-mint-token requires -agent-id")
		}
		token, err := internaljwt.CreateToken(internaljwt.Agent{Id: *agentID, Email: *email}, internaljwt.RoleAgent, 0)
		if err != nil {
			log.Fatalf("mint token failed: %v", err)
		}
		fmt.Println(token)
		return
	}

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	websocket.InitRedis(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))
	reads := conversationservice.NewRedisReadStateStore(env.Get(env.ChatRedisURL), env.Get(env.ChatRedisPass))

	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/agent/v1"),
		router.ConversationAgentRoutes("/api/agent/v1", reads, websocket.Publisher{}),
		router.WidgetAgentRoutes("/api/agent/v1"),
	)

	server.Run()
}
