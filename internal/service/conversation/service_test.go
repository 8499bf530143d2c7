package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"reflet-widget/internal/model"
)

type memoryRepository struct {
	widgets       map[string]model.WidgetItem
	visitors      map[string]model.VisitorItem
	conversations map[string]model.ConversationItem
	messages      []model.MessageItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		widgets:       make(map[string]model.WidgetItem),
		visitors:      make(map[string]model.VisitorItem),
		conversations: make(map[string]model.ConversationItem),
	}
}

func (r *memoryRepository) GetWidget(ctx context.Context, widgetID string) (model.WidgetItem, error) {
	widget, ok := r.widgets[widgetID]
	if !ok {
		return model.WidgetItem{}, ErrNotFound
	}
	return widget, nil
}

func (r *memoryRepository) GetVisitor(ctx context.Context, widgetID, visitorID string) (model.VisitorItem, error) {
	visitor, ok := r.visitors[model.VisitorPK(widgetID, visitorID)]
	if !ok {
		return model.VisitorItem{}, ErrNotFound
	}
	return visitor, nil
}

func (r *memoryRepository) PutVisitor(ctx context.Context, visitor model.VisitorItem) error {
	r.visitors[visitor.PK] = visitor
	return nil
}

func (r *memoryRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	r.conversations[conversation.PK] = conversation
	return nil
}

func (r *memoryRepository) GetConversation(ctx context.Context, widgetID, conversationID string) (model.ConversationItem, error) {
	conversation, ok := r.conversations[model.ConversationPK(widgetID, conversationID)]
	if !ok {
		return model.ConversationItem{}, ErrNotFound
	}
	return conversation, nil
}

func (r *memoryRepository) UpdateConversationActivity(ctx context.Context, widgetID, conversationID, updatedAt, lastMessageAt string) error {
	pk := model.ConversationPK(widgetID, conversationID)
	conversation, ok := r.conversations[pk]
	if !ok {
		return ErrNotFound
	}
	conversation.UpdatedAt = updatedAt
	conversation.LastMessageAt = lastMessageAt
	r.conversations[pk] = conversation
	return nil
}

func (r *memoryRepository) ListConversations(ctx context.Context, widgetID string, limit int) ([]model.ConversationItem, error) {
	var out []model.ConversationItem
	for _, conversation := range r.conversations {
		if conversation.WidgetID == widgetID {
			out = append(out, conversation)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	r.messages = append(r.messages, message)
	return nil
}

func (r *memoryRepository) ListMessages(ctx context.Context, widgetID, conversationID string, limit int) ([]model.MessageItem, error) {
	var out []model.MessageItem
	for _, message := range r.messages {
		if message.WidgetID == widgetID && message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memoryReadStateStore struct {
	counts map[string]int
}

func newMemoryReadStateStore() *memoryReadStateStore {
	return &memoryReadStateStore{counts: make(map[string]int)}
}

func (s *memoryReadStateStore) key(widgetID, conversationID string) string {
	return widgetID + "#" + conversationID
}

func (s *memoryReadStateStore) Increment(ctx context.Context, widgetID, conversationID string, delta int) error {
	s.counts[s.key(widgetID, conversationID)] += delta
	return nil
}

func (s *memoryReadStateStore) Reset(ctx context.Context, widgetID, conversationID string) error {
	delete(s.counts, s.key(widgetID, conversationID))
	return nil
}

func (s *memoryReadStateStore) Count(ctx context.Context, widgetID, conversationID string) (int, error) {
	return s.counts[s.key(widgetID, conversationID)], nil
}

type capturingPublisher struct {
	events []string
}

func (p *capturingPublisher) PublishConversationEvent(widgetID string, payload interface{}) error {
	p.events = append(p.events, widgetID)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *memoryRepository, *memoryReadStateStore, *capturingPublisher) {
	repo := newMemoryRepository()
	repo.widgets["wgt_1"] = model.WidgetItem{WidgetID: "wgt_1", TenantID: "tenant-1", OrganizationName: "Acme"}
	reads := newMemoryReadStateStore()
	events := &capturingPublisher{}
	return NewWithRepository(repo, reads, events, fixedNow), repo, reads, events
}

func TestGetOrCreateConversationCreatesThenResumes(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{
		WidgetID:  "wgt_1",
		VisitorID: "visitor_a",
		Metadata:  map[string]string{"url": "https://example.com"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsNew {
		t.Fatal("first call should create a new conversation")
	}
	if first.ConversationID == "" {
		t.Fatal("expected a conversation id")
	}

	second, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.IsNew {
		t.Fatal("second call should resume, not create")
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected resumed id %s, got %s", first.ConversationID, second.ConversationID)
	}

	visitor := repo.visitors[model.VisitorPK("wgt_1", "visitor_a")]
	if visitor.ActiveConversationID != first.ConversationID {
		t.Fatalf("visitor active conversation not recorded: %q", visitor.ActiveConversationID)
	}
	if visitor.Metadata["url"] != "https://example.com" {
		t.Fatalf("visitor metadata not captured: %v", visitor.Metadata)
	}
}

func TestGetOrCreateConversationRecreatesWhenActiveVanished(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	delete(repo.conversations, model.ConversationPK("wgt_1", first.ConversationID))

	second, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if !second.IsNew {
		t.Fatal("expected a fresh conversation after the stored one vanished")
	}
	if second.ConversationID == first.ConversationID {
		t.Fatal("expected a new conversation id")
	}
}

func TestGetOrCreateConversationUnknownWidget(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetOrCreateConversation(context.Background(), GetOrCreateParams{WidgetID: "wgt_missing", VisitorID: "visitor_a"})
	assertErrorCode(t, err, ErrorCodeNotFound)
}

func TestPostVisitorMessageUpdatesActivityAndPublishes(t *testing.T) {
	svc, repo, _, events := newTestService()
	ctx := context.Background()

	created, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.PostVisitorMessage(ctx, "wgt_1", "visitor_a", created.ConversationID, "  hello  ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if result.Message.Body != "hello" {
		t.Fatalf("expected trimmed body, got %q", result.Message.Body)
	}
	if result.Message.SenderType != model.SenderTypeVisitor {
		t.Fatalf("unexpected sender type %q", result.Message.SenderType)
	}

	stored := repo.conversations[model.ConversationPK("wgt_1", created.ConversationID)]
	if stored.LastMessageAt != fixedNow().Format(time.RFC3339) {
		t.Fatalf("conversation activity not bumped: %q", stored.LastMessageAt)
	}
	if len(events.events) != 1 || events.events[0] != "wgt_1" {
		t.Fatalf("expected one published event for wgt_1, got %v", events.events)
	}
}

func TestPostVisitorMessageValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.PostVisitorMessage(ctx, "wgt_1", "visitor_a", created.ConversationID, "   ")
	assertErrorCode(t, err, ErrorCodeValidation)

	_, err = svc.PostVisitorMessage(ctx, "wgt_1", "visitor_b", created.ConversationID, "hi")
	assertErrorCode(t, err, ErrorCodeForbidden)

	_, err = svc.PostVisitorMessage(ctx, "wgt_1", "visitor_a", "conv-missing", "hi")
	assertErrorCode(t, err, ErrorCodeNotFound)
}

func TestPostVisitorMessageClosedConversation(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pk := model.ConversationPK("wgt_1", created.ConversationID)
	conversation := repo.conversations[pk]
	conversation.Status = model.ConversationStatusClosed
	repo.conversations[pk] = conversation

	_, err = svc.PostVisitorMessage(ctx, "wgt_1", "visitor_a", created.ConversationID, "hi")
	assertErrorCode(t, err, ErrorCodeConflict)
}

func TestAgentMessageBumpsUnreadAndMarkReadResets(t *testing.T) {
	svc, _, reads, events := newTestService()
	ctx := context.Background()
	agent := Identity{AgentID: "agent-1", Email: "agent@acme.test"}

	created, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.PostAgentMessage(ctx, agent, "wgt_1", created.ConversationID, fmt.Sprintf("reply %d", i)); err != nil {
			t.Fatalf("agent post %d: %v", i, err)
		}
	}

	count, err := svc.UnreadCount(ctx, "wgt_1", "visitor_a", created.ConversationID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread, got %d", count)
	}
	if len(events.events) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(events.events))
	}

	ok, err := svc.MarkMessagesAsRead(ctx, "wgt_1", "visitor_a", created.ConversationID)
	if err != nil || !ok {
		t.Fatalf("mark read: ok=%v err=%v", ok, err)
	}

	count, err = svc.UnreadCount(ctx, "wgt_1", "visitor_a", created.ConversationID)
	if err != nil {
		t.Fatalf("unread count after reset: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread after mark read, got %d", count)
	}
	if len(reads.counts) != 0 {
		t.Fatalf("expected counter removed, got %v", reads.counts)
	}
}

func TestPostAgentMessageRequiresIdentity(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.PostAgentMessage(context.Background(), Identity{}, "wgt_1", "conv-1", "hi")
	assertErrorCode(t, err, ErrorCodeUnauthorized)
}

func TestListVisitorMessagesOwnershipAndOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	agent := Identity{AgentID: "agent-1"}

	created, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.PostVisitorMessage(ctx, "wgt_1", "visitor_a", created.ConversationID, "question"); err != nil {
		t.Fatalf("visitor post: %v", err)
	}
	if _, err := svc.PostAgentMessage(ctx, agent, "wgt_1", created.ConversationID, "answer"); err != nil {
		t.Fatalf("agent post: %v", err)
	}

	messages, err := svc.ListVisitorMessages(ctx, "wgt_1", "visitor_a", created.ConversationID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Body != "question" || messages[1].Body != "answer" {
		t.Fatalf("unexpected order: %q then %q", messages[0].Body, messages[1].Body)
	}

	_, err = svc.ListVisitorMessages(ctx, "wgt_1", "visitor_b", created.ConversationID, 0)
	assertErrorCode(t, err, ErrorCodeForbidden)
}

func TestListVisitorMessagesReturnsFullHistory(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	agent := Identity{AgentID: "agent-1"}

	created, err := svc.GetOrCreateConversation(ctx, GetOrCreateParams{WidgetID: "wgt_1", VisitorID: "visitor_a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const posted = 120
	for i := 0; i < posted; i++ {
		if _, err := svc.PostVisitorMessage(ctx, "wgt_1", "visitor_a", created.ConversationID, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	before, err := svc.ListVisitorMessages(ctx, "wgt_1", "visitor_a", created.ConversationID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(before) != posted {
		t.Fatalf("expected %d messages, got %d", posted, len(before))
	}

	// A long thread must still grow visibly when the agent replies; the
	// embed's poll compares list lengths to decide whether to re-render.
	if _, err := svc.PostAgentMessage(ctx, agent, "wgt_1", created.ConversationID, "late reply"); err != nil {
		t.Fatalf("agent reply: %v", err)
	}

	after, err := svc.ListVisitorMessages(ctx, "wgt_1", "visitor_a", created.ConversationID, 0)
	if err != nil {
		t.Fatalf("list after reply: %v", err)
	}
	if len(after) != posted+1 {
		t.Fatalf("expected %d messages after reply, got %d", posted+1, len(after))
	}
	if after[len(after)-1].Body != "late reply" {
		t.Fatalf("expected the reply last, got %q", after[len(after)-1].Body)
	}

	// An explicit limit still returns the newest slice of the thread.
	tail, err := svc.ListVisitorMessages(ctx, "wgt_1", "visitor_a", created.ConversationID, 50)
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(tail) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(tail))
	}
	if tail[len(tail)-1].Body != "late reply" {
		t.Fatalf("limited list should keep the newest messages, got %q", tail[len(tail)-1].Body)
	}
}

func assertErrorCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if svcErr.Code != want {
		t.Fatalf("expected code %s, got %s (%s)", want, svcErr.Code, svcErr.Message)
	}
}
