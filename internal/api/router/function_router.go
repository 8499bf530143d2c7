package router

import (
	"net/http"

	"reflet-widget/internal/api"
	"reflet-widget/internal/api/endpoints"
	conversationservice "reflet-widget/internal/service/conversation"
	"reflet-widget/internal/service/widgetcfg"
)

// FunctionRoutes exposes the public function-call surface the embed speaks:
// one POST route, wildcard CORS, no auth beyond the ids in the payload.
func FunctionRoutes(prefix string, reads conversationservice.ReadStateStore, events conversationservice.EventPublisher) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		conversations := conversationservice.New(s.Database(), reads, events)
		widgets := widgetcfg.New(s.Database())
		functionEndpoints := endpoints.NewFunctionEndpoints(conversations, widgets)

		mux.HandleFunc(prefix+"/call", s.MakeEmbedHTTPHandleFunc(functionEndpoints.Call))
	}
}
