package model

const (
	WidgetsTable       = "Widgets"
	ConversationsTable = "Conversations"
	MessagesTable      = "Messages"
	VisitorsTable      = "Visitors"
)
