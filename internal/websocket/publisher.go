package websocket

import (
	"context"
	"encoding/json"
	"fmt"
)

func Publish(widgetID string, payload interface{}) error {
	if widgetID == "" {
		return fmt.Errorf("websocket publish: widgetID required")
	}
	if redisClient == nil {
		return fmt.Errorf("websocket publish: redis client not initialised")
	}

	messageJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal payload: %w", err)
	}

	if err := redisClient.Publish(context.Background(), widgetID, string(messageJSON)).Err(); err != nil {
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	return nil
}

// Publisher adapts the package-level Publish func to the conversation
// service's EventPublisher interface.
type Publisher struct{}

func (Publisher) PublishConversationEvent(widgetID string, payload interface{}) error {
	return Publish(widgetID, payload)
}
