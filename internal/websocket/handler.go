package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"reflet-widget/internal/env"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") == env.Get(env.DashboardURL)
		},
	}
	redisClient *redis.Client
)

// InitRedis wires the relay to the chat Redis instance. Mains call it after
// env validation so a .env file can supply the address.
func InitRedis(addr, password string) {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
}

func NewHandler(h *Hub) *Handler {
	return &Handler{
		hub:         h,
		redisClient: redisClient,
	}
}

// subscribeToWidgetChannel pumps Redis pub/sub messages for one widget into
// the hub. One subscription per room, started when the room is created.
func (h *Handler) subscribeToWidgetChannel(widgetID string) {
	if _, exists := h.hub.room(widgetID); !exists {
		log.Printf("Room %s not found for subscription", widgetID)
		return
	}
	if h.redisClient == nil {
		log.Printf("Redis client not initialised; room %s gets no fan-in", widgetID)
		return
	}

	log.Printf("Subscribing to Redis channel: %s", widgetID)
	subscriber := h.redisClient.Subscribe(context.Background(), widgetID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		h.hub.Broadcast <- &WSMessage{
			Content:   msg.Payload,
			WidgetID:  widgetID,
			Timestamp: time.Now().Unix(),
		}
	}
	log.Printf("Unsubscribed from Redis channel: %s", widgetID)
}

func (h *Handler) EnsureRoom(widgetID string) {
	if _, created := h.hub.ensureRoom(widgetID); !created {
		return
	}

	go h.subscribeToWidgetChannel(widgetID)
}

// JoinWidgetRoom upgrades an authenticated dashboard connection and streams
// the widget's conversation events to it.
func (h *Handler) JoinWidgetRoom(w http.ResponseWriter, r *http.Request) {
	widgetID := r.URL.Query().Get("widgetId")
	if widgetID == "" {
		http.Error(w, "widgetId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.EnsureRoom(widgetID)

	client := &WSClient{
		Conn:     conn,
		Message:  make(chan *WSMessage, 16),
		ID:       uuid.NewString(),
		WidgetID: widgetID,
		done:     make(chan struct{}),
	}

	h.hub.Register <- client

	go client.writeMessage()
	go client.keepAlive()
	go client.readMessage(h.hub)
}
