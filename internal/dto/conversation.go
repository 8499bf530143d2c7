package dto

type ConversationSummary struct {
	ConversationID string            `json:"conversationId"`
	WidgetID       string            `json:"widgetId"`
	VisitorID      string            `json:"visitorId"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      string            `json:"createdAt"`
	UpdatedAt      string            `json:"updatedAt"`
	LastMessageAt  string            `json:"lastMessageAt"`
}

type MessageResponse struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderType     string `json:"senderType"`
	SenderID       string `json:"senderId"`
	Body           string `json:"body"`
	CreatedAt      string `json:"createdAt"`
}

type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type PostAgentMessageRequest struct {
	WidgetID       string `json:"widgetId"`
	ConversationID string `json:"conversationId"`
	Body           string `json:"body"`
}

type PostAgentMessageResponse struct {
	Message MessageResponse `json:"message"`
}
