package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"reflet-widget/internal/model"
	conversationservice "reflet-widget/internal/service/conversation"
	"reflet-widget/internal/service/widgetcfg"
)

// Function paths the embed invokes. The endpoint mimics a function-as-a-service
// call surface: one POST route, the body names the operation.
const (
	fnGetConfig               = "widget_public:getConfig"
	fnGetOrCreateConversation = "widget_public:getOrCreateConversation"
	fnSendMessage             = "widget_public:sendMessage"
	fnListMessages            = "widget_public:listMessages"
	fnMarkMessagesAsRead      = "widget_public:markMessagesAsRead"
	fnGetUnreadCount          = "widget_public:getUnreadCount"
)

type FunctionRequest struct {
	Path   string          `json:"path"`
	Args   json.RawMessage `json:"args"`
	Format string          `json:"format"`
}

type FunctionResponse struct {
	Status       string      `json:"status"`
	Value        interface{} `json:"value"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

type FunctionEndpoints interface {
	Call(http.ResponseWriter, *http.Request) error
}

type functionEndpoints struct {
	conversations *conversationservice.Service
	widgets       *widgetcfg.Service
}

func NewFunctionEndpoints(conversations *conversationservice.Service, widgets *widgetcfg.Service) FunctionEndpoints {
	return &functionEndpoints{
		conversations: conversations,
		widgets:       widgets,
	}
}

// Call dispatches on the function path. Application failures come back as a
// 200 with status "error"; the embed collapses every failure mode to nil, so
// only an undecodable body warrants a transport-level status code.
func (h *functionEndpoints) Call(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return &HTTPError{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed.",
			ErrorLog:   fmt.Errorf("function endpoint called with %s", r.Method),
		}
	}

	var req FunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode function request: %w", err),
		}
	}

	value, err := h.dispatch(r, req)
	if err != nil {
		return writeFunctionError(w, err)
	}

	return WriteJSON(w, http.StatusOK, FunctionResponse{
		Status: "success",
		Value:  value,
	})
}

func (h *functionEndpoints) dispatch(r *http.Request, req FunctionRequest) (interface{}, error) {
	switch req.Path {
	case fnGetConfig:
		var args struct {
			WidgetID string `json:"widgetId"`
		}
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return h.widgets.PublicConfig(r.Context(), args.WidgetID)

	case fnGetOrCreateConversation:
		var args struct {
			WidgetID  string            `json:"widgetId"`
			VisitorID string            `json:"visitorId"`
			Metadata  map[string]string `json:"metadata,omitempty"`
		}
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		result, err := h.conversations.GetOrCreateConversation(r.Context(), conversationservice.GetOrCreateParams{
			WidgetID:  args.WidgetID,
			VisitorID: args.VisitorID,
			Metadata:  args.Metadata,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"conversationId": result.ConversationID,
			"visitorId":      result.VisitorID,
			"isNew":          result.IsNew,
		}, nil

	case fnSendMessage:
		var args struct {
			visitorConversationArgs
			Body string `json:"body"`
		}
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		result, err := h.conversations.PostVisitorMessage(r.Context(), args.WidgetID, args.VisitorID, args.ConversationID, args.Body)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"messageId": result.Message.MessageID,
		}, nil

	case fnListMessages:
		var args visitorConversationArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		messages, err := h.conversations.ListVisitorMessages(r.Context(), args.WidgetID, args.VisitorID, args.ConversationID, 0)
		if err != nil {
			return nil, err
		}
		return messagePayloads(messages, args.VisitorID), nil

	case fnMarkMessagesAsRead:
		var args visitorConversationArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return h.conversations.MarkMessagesAsRead(r.Context(), args.WidgetID, args.VisitorID, args.ConversationID)

	case fnGetUnreadCount:
		var args visitorConversationArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return nil, err
		}
		return h.conversations.UnreadCount(r.Context(), args.WidgetID, args.VisitorID, args.ConversationID)
	}

	return nil, fmt.Errorf("unknown function: %s", req.Path)
}

type visitorConversationArgs struct {
	WidgetID       string `json:"widgetId"`
	VisitorID      string `json:"visitorId"`
	ConversationID string `json:"conversationId"`
}

type messagePayload struct {
	MessageID  string `json:"messageId"`
	Body       string `json:"body"`
	SenderType string `json:"senderType"`
	IsOwn      bool   `json:"isOwn"`
	CreatedAt  string `json:"createdAt"`
}

// messagePayloads computes the per-viewer isOwn flag server-side so the embed
// never needs to compare sender ids.
func messagePayloads(messages []model.MessageItem, visitorID string) []messagePayload {
	payloads := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, messagePayload{
			MessageID:  message.MessageID,
			Body:       message.Body,
			SenderType: message.SenderType,
			IsOwn:      message.SenderType == model.SenderTypeVisitor && message.SenderID == visitorID,
			CreatedAt:  message.CreatedAt,
		})
	}
	return payloads
}

func decodeArgs(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing args")
	}
	return json.Unmarshal(raw, out)
}

func writeFunctionError(w http.ResponseWriter, err error) error {
	message := "Internal server error"

	switch svcErr := err.(type) {
	case *conversationservice.Error:
		if svcErr.Code != conversationservice.ErrorCodeInternal {
			message = svcErr.Message
		}
	case *widgetcfg.Error:
		if svcErr.Code != widgetcfg.ErrorCodeInternal {
			message = svcErr.Message
		}
	default:
		message = err.Error()
	}

	return WriteJSON(w, http.StatusOK, FunctionResponse{
		Status:       "error",
		ErrorMessage: message,
	})
}
