package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"reflet-widget/internal/api"
	internaljwt "reflet-widget/internal/jwt"
	conversationservice "reflet-widget/internal/service/conversation"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method not allowed"),
	}
}

// agentIdentity extracts the agent from the bearer token. The JWT middleware
// already rejected invalid tokens; this recovers the claims for the services.
func agentIdentity(r *http.Request) (conversationservice.Identity, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return conversationservice.Identity{}, fmt.Errorf("missing bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleAgent)
	if err != nil {
		return conversationservice.Identity{}, err
	}

	agentID, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if agentID == "" {
		return conversationservice.Identity{}, fmt.Errorf("token missing agent id")
	}

	return conversationservice.Identity{
		AgentID: agentID,
		Email:   email,
	}, nil
}

func mapConversationServiceError(err error) error {
	svcErr, ok := err.(*conversationservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case conversationservice.ErrorCodeValidation:
		status = http.StatusBadRequest
	case conversationservice.ErrorCodeUnauthorized:
		status = http.StatusUnauthorized
	case conversationservice.ErrorCodeForbidden:
		status = http.StatusForbidden
	case conversationservice.ErrorCodeNotFound:
		status = http.StatusNotFound
	case conversationservice.ErrorCodeConflict:
		status = http.StatusConflict
	}

	return &HTTPError{
		StatusCode: status,
		Message:    svcErr.Message,
		ErrorLog:   svcErr,
	}
}
