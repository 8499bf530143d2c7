package model

import "fmt"

type ConversationStatus string

const (
	ConversationStatusOpen   ConversationStatus = "open"
	ConversationStatusClosed ConversationStatus = "closed"
)

const (
	SenderTypeVisitor = "visitor"
	SenderTypeAgent   = "agent"
)

func ConversationPK(widgetID, conversationID string) string {
	return fmt.Sprintf("%s#%s", widgetID, conversationID)
}

func MessagePK(conversationID, messageID string) string {
	return fmt.Sprintf("%s#%s", conversationID, messageID)
}

func VisitorPK(widgetID, visitorID string) string {
	return fmt.Sprintf("%s#%s", widgetID, visitorID)
}

type ConversationItem struct {
	PK             string             `dynamodbav:"pk"`
	ConversationID string             `dynamodbav:"conversationId"`
	WidgetID       string             `dynamodbav:"widgetId"`
	TenantID       string             `dynamodbav:"tenantId"`
	VisitorID      string             `dynamodbav:"visitorId"`
	Status         ConversationStatus `dynamodbav:"status"`
	Metadata       map[string]string  `dynamodbav:"metadata,omitempty"`
	CreatedAt      string             `dynamodbav:"createdAt"`
	UpdatedAt      string             `dynamodbav:"updatedAt"`
	LastMessageAt  string             `dynamodbav:"lastMessageAt"`
}

type MessageItem struct {
	PK             string `dynamodbav:"pk"`
	WidgetID       string `dynamodbav:"widgetId"`
	ConversationID string `dynamodbav:"conversationId"`
	MessageID      string `dynamodbav:"messageId"`
	SenderType     string `dynamodbav:"senderType"`
	SenderID       string `dynamodbav:"senderId"`
	Body           string `dynamodbav:"body"`
	CreatedAt      string `dynamodbav:"createdAt"`
}

// VisitorItem records an anonymous browser identity. ActiveConversationID is
// the thread that visitor resumes on the widget; it is never cleared once set.
type VisitorItem struct {
	PK                   string            `dynamodbav:"pk"`
	WidgetID             string            `dynamodbav:"widgetId"`
	VisitorID            string            `dynamodbav:"visitorId"`
	ActiveConversationID string            `dynamodbav:"activeConversationId,omitempty"`
	Metadata             map[string]string `dynamodbav:"metadata,omitempty"`
	CreatedAt            string            `dynamodbav:"createdAt"`
	LastSeenAt           string            `dynamodbav:"lastSeenAt"`
}
