package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"reflet-widget/internal/dto"
	"reflet-widget/internal/model"
	conversationservice "reflet-widget/internal/service/conversation"
)

type ConversationEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	Messages(http.ResponseWriter, *http.Request) error
	Reply(http.ResponseWriter, *http.Request) error
}

type conversationEndpoints struct {
	service *conversationservice.Service
}

func NewConversationEndpoints(service *conversationservice.Service) ConversationEndpoints {
	return &conversationEndpoints{
		service: service,
	}
}

func (h *conversationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListConversations,
	})
}

func (h *conversationEndpoints) Messages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListMessages,
	})
}

func (h *conversationEndpoints) Reply(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleReply,
	})
}

func (h *conversationEndpoints) handleListConversations(w http.ResponseWriter, r *http.Request) error {
	identity, err := agentIdentity(r)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   err,
		}
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	conversations, err := h.service.ListConversations(r.Context(), identity, r.URL.Query().Get("widgetId"), limit)
	if err != nil {
		return mapConversationServiceError(err)
	}

	summaries := make([]dto.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summaries = append(summaries, conversationSummary(c))
	}

	return WriteJSON(w, http.StatusOK, dto.ListConversationsResponse{
		Conversations: summaries,
	})
}

func (h *conversationEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request) error {
	identity, err := agentIdentity(r)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   err,
		}
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.service.ListMessages(
		r.Context(),
		identity,
		r.URL.Query().Get("widgetId"),
		r.URL.Query().Get("conversationId"),
		limit,
	)
	if err != nil {
		return mapConversationServiceError(err)
	}

	responses := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, messageResponse(m))
	}

	return WriteJSON(w, http.StatusOK, dto.ListMessagesResponse{
		Messages: responses,
	})
}

func (h *conversationEndpoints) handleReply(w http.ResponseWriter, r *http.Request) error {
	identity, err := agentIdentity(r)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   err,
		}
	}

	var req dto.PostAgentMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode agent message request: %w", err),
		}
	}

	result, err := h.service.PostAgentMessage(r.Context(), identity, req.WidgetID, req.ConversationID, req.Body)
	if err != nil {
		return mapConversationServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.PostAgentMessageResponse{
		Message: messageResponse(result.Message),
	})
}

func conversationSummary(c model.ConversationItem) dto.ConversationSummary {
	return dto.ConversationSummary{
		ConversationID: c.ConversationID,
		WidgetID:       c.WidgetID,
		VisitorID:      c.VisitorID,
		Status:         string(c.Status),
		Metadata:       c.Metadata,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		LastMessageAt:  c.LastMessageAt,
	}
}

func messageResponse(m model.MessageItem) dto.MessageResponse {
	return dto.MessageResponse{
		MessageID:      m.MessageID,
		ConversationID: m.ConversationID,
		SenderType:     m.SenderType,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}
