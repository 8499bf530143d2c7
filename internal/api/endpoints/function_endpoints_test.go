package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reflet-widget/internal/model"
	conversationservice "reflet-widget/internal/service/conversation"
	"reflet-widget/internal/service/widgetcfg"
)

type fakeStorage struct {
	widgets       map[string]model.WidgetItem
	visitors      map[string]model.VisitorItem
	conversations map[string]model.ConversationItem
	messages      []model.MessageItem
	counts        map[string]int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		widgets:       make(map[string]model.WidgetItem),
		visitors:      make(map[string]model.VisitorItem),
		conversations: make(map[string]model.ConversationItem),
		counts:        make(map[string]int),
	}
}

func (f *fakeStorage) GetWidget(ctx context.Context, widgetID string) (model.WidgetItem, error) {
	widget, ok := f.widgets[widgetID]
	if !ok {
		return model.WidgetItem{}, errors.Join(conversationservice.ErrNotFound, widgetcfg.ErrNotFound)
	}
	return widget, nil
}

func (f *fakeStorage) PutWidget(ctx context.Context, widget model.WidgetItem) error {
	f.widgets[widget.WidgetID] = widget
	return nil
}

func (f *fakeStorage) GetVisitor(ctx context.Context, widgetID, visitorID string) (model.VisitorItem, error) {
	visitor, ok := f.visitors[model.VisitorPK(widgetID, visitorID)]
	if !ok {
		return model.VisitorItem{}, conversationservice.ErrNotFound
	}
	return visitor, nil
}

func (f *fakeStorage) PutVisitor(ctx context.Context, visitor model.VisitorItem) error {
	f.visitors[visitor.PK] = visitor
	return nil
}

func (f *fakeStorage) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	f.conversations[conversation.PK] = conversation
	return nil
}

func (f *fakeStorage) GetConversation(ctx context.Context, widgetID, conversationID string) (model.ConversationItem, error) {
	conversation, ok := f.conversations[model.ConversationPK(widgetID, conversationID)]
	if !ok {
		return model.ConversationItem{}, conversationservice.ErrNotFound
	}
	return conversation, nil
}

func (f *fakeStorage) UpdateConversationActivity(ctx context.Context, widgetID, conversationID, updatedAt, lastMessageAt string) error {
	pk := model.ConversationPK(widgetID, conversationID)
	conversation, ok := f.conversations[pk]
	if !ok {
		return conversationservice.ErrNotFound
	}
	conversation.UpdatedAt = updatedAt
	conversation.LastMessageAt = lastMessageAt
	f.conversations[pk] = conversation
	return nil
}

func (f *fakeStorage) ListConversations(ctx context.Context, widgetID string, limit int) ([]model.ConversationItem, error) {
	var out []model.ConversationItem
	for _, conversation := range f.conversations {
		if conversation.WidgetID == widgetID {
			out = append(out, conversation)
		}
	}
	return out, nil
}

func (f *fakeStorage) CreateMessage(ctx context.Context, message model.MessageItem) error {
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeStorage) ListMessages(ctx context.Context, widgetID, conversationID string, limit int) ([]model.MessageItem, error) {
	var out []model.MessageItem
	for _, message := range f.messages {
		if message.WidgetID == widgetID && message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (f *fakeStorage) Increment(ctx context.Context, widgetID, conversationID string, delta int) error {
	f.counts[widgetID+"#"+conversationID] += delta
	return nil
}

func (f *fakeStorage) Reset(ctx context.Context, widgetID, conversationID string) error {
	delete(f.counts, widgetID+"#"+conversationID)
	return nil
}

func (f *fakeStorage) Count(ctx context.Context, widgetID, conversationID string) (int, error) {
	return f.counts[widgetID+"#"+conversationID], nil
}

// newFunctionServer wires the function endpoint over in-memory storage the
// same way MakeEmbedHTTPHandleFunc does, minus queue and middleware.
func newFunctionServer(t *testing.T) (*httptest.Server, *fakeStorage, *conversationservice.Service) {
	t.Helper()

	storage := newFakeStorage()
	storage.widgets["wgt_1"] = model.WidgetItem{
		WidgetID:         "wgt_1",
		TenantID:         "tenant-1",
		OrganizationName: "Acme",
		BrandColor:       "#4f46e5",
		Position:         "bottom-right",
		ShowLauncher:     true,
		ZIndex:           100,
	}

	now := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	conversations := conversationservice.NewWithRepository(storage, storage, nil, now)
	widgets := widgetcfg.NewWithRepository(storage, now)
	handler := NewFunctionEndpoints(conversations, widgets)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := handler.Call(w, r); err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				WriteJSON(w, httpErr.StatusCode, ApiMessageResponse{Message: httpErr.Message})
				return
			}
			WriteJSON(w, http.StatusInternalServerError, ApiMessageResponse{Message: "Internal server error"})
		}
	}))
	t.Cleanup(server.Close)

	return server, storage, conversations
}

func callFunction(t *testing.T, server *httptest.Server, path string, args interface{}) FunctionResponse {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"path":   path,
		"args":   args,
		"format": "json",
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	res, err := http.Post(server.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	var envelope FunctionResponse
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func TestFunctionEndpointVisitorRoundTrip(t *testing.T) {
	server, _, conversations := newFunctionServer(t)

	cfg := callFunction(t, server, "widget_public:getConfig", map[string]string{"widgetId": "wgt_1"})
	if cfg.Status != "success" {
		t.Fatalf("getConfig failed: %+v", cfg)
	}
	cfgValue := cfg.Value.(map[string]interface{})
	if cfgValue["organizationName"] != "Acme" {
		t.Fatalf("unexpected config %v", cfgValue)
	}

	created := callFunction(t, server, "widget_public:getOrCreateConversation", map[string]interface{}{
		"widgetId":  "wgt_1",
		"visitorId": "visitor_a",
		"metadata":  map[string]string{"url": "https://example.com"},
	})
	if created.Status != "success" {
		t.Fatalf("getOrCreateConversation failed: %+v", created)
	}
	conversationID := created.Value.(map[string]interface{})["conversationId"].(string)
	if conversationID == "" {
		t.Fatal("expected a conversation id")
	}

	visitorArgs := map[string]string{
		"widgetId":       "wgt_1",
		"visitorId":      "visitor_a",
		"conversationId": conversationID,
	}

	sent := callFunction(t, server, "widget_public:sendMessage", map[string]string{
		"widgetId":       "wgt_1",
		"visitorId":      "visitor_a",
		"conversationId": conversationID,
		"body":           "hello",
	})
	if sent.Status != "success" {
		t.Fatalf("sendMessage failed: %+v", sent)
	}

	// An agent reply bumps the unread counter and must come back isOwn=false.
	agent := conversationservice.Identity{AgentID: "agent-1"}
	if _, err := conversations.PostAgentMessage(context.Background(), agent, "wgt_1", conversationID, "hi!"); err != nil {
		t.Fatalf("agent reply: %v", err)
	}

	listed := callFunction(t, server, "widget_public:listMessages", visitorArgs)
	if listed.Status != "success" {
		t.Fatalf("listMessages failed: %+v", listed)
	}
	messages := listed.Value.([]interface{})
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	first := messages[0].(map[string]interface{})
	second := messages[1].(map[string]interface{})
	if first["isOwn"] != true || first["senderType"] != "visitor" {
		t.Fatalf("unexpected visitor message %v", first)
	}
	if second["isOwn"] != false || second["senderType"] != "agent" {
		t.Fatalf("unexpected agent message %v", second)
	}

	unread := callFunction(t, server, "widget_public:getUnreadCount", visitorArgs)
	if unread.Status != "success" || unread.Value.(float64) != 1 {
		t.Fatalf("expected 1 unread, got %+v", unread)
	}

	marked := callFunction(t, server, "widget_public:markMessagesAsRead", visitorArgs)
	if marked.Status != "success" || marked.Value != true {
		t.Fatalf("markMessagesAsRead failed: %+v", marked)
	}

	unread = callFunction(t, server, "widget_public:getUnreadCount", visitorArgs)
	if unread.Status != "success" || unread.Value.(float64) != 0 {
		t.Fatalf("expected 0 unread after mark read, got %+v", unread)
	}
}

func TestFunctionEndpointUnknownWidget(t *testing.T) {
	server, _, _ := newFunctionServer(t)

	res := callFunction(t, server, "widget_public:getConfig", map[string]string{"widgetId": "wgt_missing"})
	if res.Status != "error" {
		t.Fatalf("expected error envelope, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "widget not found") {
		t.Fatalf("unexpected message %q", res.ErrorMessage)
	}
}

func TestFunctionEndpointUnknownPath(t *testing.T) {
	server, _, _ := newFunctionServer(t)

	res := callFunction(t, server, "widget_public:doesNotExist", map[string]string{})
	if res.Status != "error" {
		t.Fatalf("expected error envelope, got %+v", res)
	}
}

func TestFunctionEndpointRejectsBadTransportRequests(t *testing.T) {
	server, _, _ := newFunctionServer(t)

	res, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", res.StatusCode)
	}

	res, err = http.Post(server.URL, "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for undecodable body, got %d", res.StatusCode)
	}
}
