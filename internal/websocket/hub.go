package websocket

import "sync"

// Rooms is written from request goroutines (lazy room creation on join) while
// Run touches it on every register, unregister and broadcast, so all access
// goes through mu.
type Hub struct {
	mu         sync.RWMutex
	Rooms      map[string]*Room
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage),
	}
}

func (h *Hub) room(widgetID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.Rooms[widgetID]
	return room, ok
}

// ensureRoom creates the room for a widget if it does not exist yet and
// reports whether this call created it.
func (h *Hub) ensureRoom(widgetID string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.Rooms[widgetID]; ok {
		return room, false
	}
	room := &Room{
		WidgetID: widgetID,
		Clients:  make(map[string]*WSClient),
	}
	h.Rooms[widgetID] = room
	setRooms(len(h.Rooms))
	return room, true
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			room, ok := h.room(client.WidgetID)
			if !ok {
				continue
			}
			room.Clients[client.ID] = client
			incConnections()

		case client := <-h.Unregister:
			room, ok := h.room(client.WidgetID)
			if !ok {
				continue
			}
			if _, ok := room.Clients[client.ID]; ok {
				delete(room.Clients, client.ID)
				close(client.Message)
				decConnections()
			}

		case message := <-h.Broadcast:
			room, ok := h.room(message.WidgetID)
			if !ok {
				continue
			}
			delivered := 0
			for _, client := range room.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					// Slow consumer; drop it so the room keeps moving.
					close(client.Message)
					delete(room.Clients, client.ID)
					decConnections()
				}
			}
			if delivered > 0 {
				addDelivered(delivered)
			}
		}
	}
}
