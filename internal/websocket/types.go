package websocket

// Room fans conversation events for one widget out to the dashboard agents
// watching it.
type Room struct {
	WidgetID string               `json:"widgetId"`
	Clients  map[string]*WSClient `json:"clients"`
}

type WSMessage struct {
	Content   string `json:"content"`
	WidgetID  string `json:"widgetId"`
	Timestamp int64  `json:"timestamp"`
}
