package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"reflet-widget/internal/database"
	"reflet-widget/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type Identity struct {
	AgentID string
	Email   string
}

type GetOrCreateParams struct {
	WidgetID  string
	VisitorID string
	Metadata  map[string]string
}

type GetOrCreateResult struct {
	ConversationID string
	VisitorID      string
	IsNew          bool
}

type MessageResult struct {
	Conversation model.ConversationItem
	Message      model.MessageItem
}

// EventPublisher fans agent-facing conversation events out to the websocket
// relay. A nil publisher disables fan-out (tests, widget-server).
type EventPublisher interface {
	PublishConversationEvent(widgetID string, payload interface{}) error
}

type Service struct {
	repo   Repository
	reads  ReadStateStore
	events EventPublisher
	now    func() time.Time
}

func New(db *database.Database, reads ReadStateStore, events EventPublisher) *Service {
	return &Service{
		repo:   NewDynamoRepository(db),
		reads:  reads,
		events: events,
		now:    time.Now,
	}
}

func NewWithRepository(repo Repository, reads ReadStateStore, events EventPublisher, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		reads:  reads,
		events: events,
		now:    now,
	}
}

// GetOrCreateConversation resumes the visitor's active thread on a widget or
// starts a new one. At most one active conversation exists per widget per
// visitor; the active id on the visitor item is never cleared once set.
func (s *Service) GetOrCreateConversation(ctx context.Context, params GetOrCreateParams) (GetOrCreateResult, error) {
	widgetID := strings.TrimSpace(params.WidgetID)
	visitorID := strings.TrimSpace(params.VisitorID)

	if widgetID == "" {
		return GetOrCreateResult{}, newError(ErrorCodeValidation, "widgetId is required", nil)
	}
	if visitorID == "" {
		return GetOrCreateResult{}, newError(ErrorCodeValidation, "visitorId is required", nil)
	}

	widget, err := s.repo.GetWidget(ctx, widgetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GetOrCreateResult{}, newError(ErrorCodeNotFound, "widget not found", err)
		}
		return GetOrCreateResult{}, newError(ErrorCodeInternal, "failed to load widget", err)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	visitor, err := s.repo.GetVisitor(ctx, widgetID, visitorID)
	switch {
	case err == nil:
		if visitor.ActiveConversationID != "" {
			if _, err := s.repo.GetConversation(ctx, widgetID, visitor.ActiveConversationID); err == nil {
				visitor.LastSeenAt = nowStr
				if err := s.repo.PutVisitor(ctx, visitor); err != nil {
					return GetOrCreateResult{}, newError(ErrorCodeInternal, "failed to update visitor", err)
				}
				return GetOrCreateResult{
					ConversationID: visitor.ActiveConversationID,
					VisitorID:      visitorID,
					IsNew:          false,
				}, nil
			} else if !errors.Is(err, ErrNotFound) {
				return GetOrCreateResult{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
			}
			// Stored conversation vanished; fall through and create a fresh one.
		}
	case errors.Is(err, ErrNotFound):
		visitor = model.VisitorItem{
			PK:        model.VisitorPK(widgetID, visitorID),
			WidgetID:  widgetID,
			VisitorID: visitorID,
			CreatedAt: nowStr,
		}
	default:
		return GetOrCreateResult{}, newError(ErrorCodeInternal, "failed to lookup visitor", err)
	}

	conversationID := uuid.NewString()
	conversation := model.ConversationItem{
		PK:             model.ConversationPK(widgetID, conversationID),
		ConversationID: conversationID,
		WidgetID:       widgetID,
		TenantID:       widget.TenantID,
		VisitorID:      visitorID,
		Status:         model.ConversationStatusOpen,
		Metadata:       cloneStringMap(params.Metadata),
		CreatedAt:      nowStr,
		UpdatedAt:      nowStr,
		LastMessageAt:  nowStr,
	}

	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return GetOrCreateResult{}, newError(ErrorCodeInternal, "failed to create conversation", err)
	}

	visitor.ActiveConversationID = conversationID
	visitor.LastSeenAt = nowStr
	if len(params.Metadata) > 0 && len(visitor.Metadata) == 0 {
		visitor.Metadata = cloneStringMap(params.Metadata)
	}
	if err := s.repo.PutVisitor(ctx, visitor); err != nil {
		return GetOrCreateResult{}, newError(ErrorCodeInternal, "failed to persist visitor", err)
	}

	return GetOrCreateResult{
		ConversationID: conversationID,
		VisitorID:      visitorID,
		IsNew:          true,
	}, nil
}

func (s *Service) PostVisitorMessage(ctx context.Context, widgetID, visitorID, conversationID, body string) (MessageResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "message body is required", nil)
	}

	conversation, err := s.visitorConversation(ctx, widgetID, visitorID, conversationID)
	if err != nil {
		return MessageResult{}, err
	}

	if conversation.Status == model.ConversationStatusClosed {
		return MessageResult{}, newError(ErrorCodeConflict, "conversation is closed", nil)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:             model.MessagePK(conversation.ConversationID, messageID),
		WidgetID:       conversation.WidgetID,
		ConversationID: conversation.ConversationID,
		MessageID:      messageID,
		SenderType:     model.SenderTypeVisitor,
		SenderID:       visitorID,
		Body:           body,
		CreatedAt:      nowStr,
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	if err := s.repo.UpdateConversationActivity(ctx, conversation.WidgetID, conversation.ConversationID, nowStr, nowStr); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	if visitor, err := s.repo.GetVisitor(ctx, conversation.WidgetID, visitorID); err == nil {
		visitor.LastSeenAt = nowStr
		if err := s.repo.PutVisitor(ctx, visitor); err != nil {
			return MessageResult{}, newError(ErrorCodeInternal, "failed to update visitor", err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to update visitor", err)
	}

	s.publishEvent(conversation.WidgetID, message)

	conversation.LastMessageAt = nowStr
	conversation.UpdatedAt = nowStr

	return MessageResult{
		Conversation: conversation,
		Message:      message,
	}, nil
}

// ListVisitorMessages returns the thread's messages. A non-positive limit
// means the full history: the embed's open-window poll detects new replies by
// comparing list lengths, so a silent cap would freeze the view once a thread
// outgrows it.
func (s *Service) ListVisitorMessages(ctx context.Context, widgetID, visitorID, conversationID string, limit int) ([]model.MessageItem, error) {
	if limit < 0 {
		limit = 0
	}

	conversation, err := s.visitorConversation(ctx, widgetID, visitorID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, conversation.WidgetID, conversation.ConversationID, limit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list messages", err)
	}
	return messages, nil
}

// MarkMessagesAsRead resets the visitor's unread counter for the thread.
func (s *Service) MarkMessagesAsRead(ctx context.Context, widgetID, visitorID, conversationID string) (bool, error) {
	conversation, err := s.visitorConversation(ctx, widgetID, visitorID, conversationID)
	if err != nil {
		return false, err
	}

	if err := s.reads.Reset(ctx, conversation.WidgetID, conversation.ConversationID); err != nil {
		return false, newError(ErrorCodeInternal, "failed to reset unread counter", err)
	}
	return true, nil
}

func (s *Service) UnreadCount(ctx context.Context, widgetID, visitorID, conversationID string) (int, error) {
	conversation, err := s.visitorConversation(ctx, widgetID, visitorID, conversationID)
	if err != nil {
		return 0, err
	}

	count, err := s.reads.Count(ctx, conversation.WidgetID, conversation.ConversationID)
	if err != nil {
		return 0, newError(ErrorCodeInternal, "failed to read unread counter", err)
	}
	return count, nil
}

// PostAgentMessage stores a support reply, bumps the visitor's unread counter
// and publishes the message to the widget's relay room.
func (s *Service) PostAgentMessage(ctx context.Context, identity Identity, widgetID, conversationID, body string) (MessageResult, error) {
	widgetID = strings.TrimSpace(widgetID)
	conversationID = strings.TrimSpace(conversationID)
	body = strings.TrimSpace(body)

	if identity.AgentID == "" {
		return MessageResult{}, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}
	if widgetID == "" || conversationID == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "widgetId and conversationId are required", nil)
	}
	if body == "" {
		return MessageResult{}, newError(ErrorCodeValidation, "message body is required", nil)
	}

	conversation, err := s.repo.GetConversation(ctx, widgetID, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MessageResult{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return MessageResult{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}

	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	messageID := uuid.NewString()
	message := model.MessageItem{
		PK:             model.MessagePK(conversation.ConversationID, messageID),
		WidgetID:       conversation.WidgetID,
		ConversationID: conversation.ConversationID,
		MessageID:      messageID,
		SenderType:     model.SenderTypeAgent,
		SenderID:       identity.AgentID,
		Body:           body,
		CreatedAt:      nowStr,
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	if err := s.repo.UpdateConversationActivity(ctx, conversation.WidgetID, conversation.ConversationID, nowStr, nowStr); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	if err := s.reads.Increment(ctx, conversation.WidgetID, conversation.ConversationID, 1); err != nil {
		return MessageResult{}, newError(ErrorCodeInternal, "failed to bump unread counter", err)
	}

	s.publishEvent(conversation.WidgetID, message)

	conversation.LastMessageAt = nowStr
	conversation.UpdatedAt = nowStr

	return MessageResult{
		Conversation: conversation,
		Message:      message,
	}, nil
}

func (s *Service) ListConversations(ctx context.Context, identity Identity, widgetID string, limit int) ([]model.ConversationItem, error) {
	if identity.AgentID == "" {
		return nil, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}
	widgetID = strings.TrimSpace(widgetID)
	if widgetID == "" {
		return nil, newError(ErrorCodeValidation, "widgetId is required", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	conversations, err := s.repo.ListConversations(ctx, widgetID, limit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list conversations", err)
	}
	return conversations, nil
}

// ListMessages is the agent-side view of a thread; no visitor check applies.
func (s *Service) ListMessages(ctx context.Context, identity Identity, widgetID, conversationID string, limit int) ([]model.MessageItem, error) {
	if identity.AgentID == "" {
		return nil, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}
	widgetID = strings.TrimSpace(widgetID)
	conversationID = strings.TrimSpace(conversationID)
	if widgetID == "" || conversationID == "" {
		return nil, newError(ErrorCodeValidation, "widgetId and conversationId are required", nil)
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	if _, err := s.repo.GetConversation(ctx, widgetID, conversationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return nil, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}

	messages, err := s.repo.ListMessages(ctx, widgetID, conversationID, limit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list messages", err)
	}
	return messages, nil
}

// visitorConversation loads a conversation and verifies it belongs to the
// calling widget and visitor pair.
func (s *Service) visitorConversation(ctx context.Context, widgetID, visitorID, conversationID string) (model.ConversationItem, error) {
	widgetID = strings.TrimSpace(widgetID)
	visitorID = strings.TrimSpace(visitorID)
	conversationID = strings.TrimSpace(conversationID)

	if widgetID == "" || visitorID == "" || conversationID == "" {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "widgetId, visitorId and conversationId are required", nil)
	}

	conversation, err := s.repo.GetConversation(ctx, widgetID, conversationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to fetch conversation", err)
	}

	if conversation.VisitorID != visitorID {
		return model.ConversationItem{}, newError(ErrorCodeForbidden, "visitor does not match conversation", nil)
	}

	return conversation, nil
}

func (s *Service) publishEvent(widgetID string, payload interface{}) {
	if s.events == nil {
		return
	}
	// Fan-out failures must not fail the write path.
	_ = s.events.PublishConversationEvent(widgetID, payload)
}

func cloneStringMap(input map[string]string) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		out[k] = v
	}
	return out
}
