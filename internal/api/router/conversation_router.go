package router

import (
	"net/http"

	"reflet-widget/internal/api"
	"reflet-widget/internal/api/endpoints"
	"reflet-widget/internal/api/middleware"
	conversationservice "reflet-widget/internal/service/conversation"
)

func ConversationAgentRoutes(prefix string, reads conversationservice.ReadStateStore, events conversationservice.EventPublisher) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := conversationservice.New(s.Database(), reads, events)
		conversationEndpoints := endpoints.NewConversationEndpoints(service)

		mux.HandleFunc(prefix+"/conversations", s.MakeHTTPHandleFunc(conversationEndpoints.Conversations, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/conversations/messages", s.MakeHTTPHandleFunc(conversationEndpoints.Messages, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/conversations/reply", s.MakeHTTPHandleFunc(conversationEndpoints.Reply, middleware.ValidateAgentJWT))
	}
}

func ConversationWebsocketRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		// The upgrade handshake cannot round-trip through the request queue.
		mux.HandleFunc(prefix+"/join", s.Handler().JoinWidgetRoom)
	}
}
