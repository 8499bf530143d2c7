package router

import (
	"net/http"

	"reflet-widget/internal/api"
	"reflet-widget/internal/api/endpoints"
	"reflet-widget/internal/api/middleware"
	"reflet-widget/internal/service/widgetcfg"
)

func WidgetAgentRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := widgetcfg.New(s.Database())
		widgetEndpoints := endpoints.NewWidgetEndpoints(service)

		mux.HandleFunc(prefix+"/widget", s.MakeHTTPHandleFunc(widgetEndpoints.WidgetSettings, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/widget/create", s.MakeHTTPHandleFunc(widgetEndpoints.CreateWidget, middleware.ValidateAgentJWT))
	}
}
