package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Second

const tempMessagePrefix = "temp_"

// Widget is the embed controller. It owns the page-lifetime state, talks to
// the backend through the Transport and redraws into the Sink whenever that
// state changes. All exported methods are safe for concurrent use with the
// background poll loop.
type Widget struct {
	widgetID  string
	transport *Transport
	store     Store
	sink      Sink

	pollInterval time.Duration
	pageURL      string
	referrer     string
	userAgent    string

	mu           sync.Mutex
	state        State
	mounted      bool
	polling      bool
	pollInFlight bool
	stopPoll     chan struct{}
}

type Option func(*Widget)

func WithPollInterval(interval time.Duration) Option {
	return func(w *Widget) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithPageContext attaches embedding-page metadata to the conversation the
// widget creates, so agents see where the visitor wrote from.
func WithPageContext(pageURL, referrer, userAgent string) Option {
	return func(w *Widget) {
		w.pageURL = pageURL
		w.referrer = referrer
		w.userAgent = userAgent
	}
}

func New(widgetID string, transport *Transport, store Store, sink Sink, opts ...Option) *Widget {
	w := &Widget{
		widgetID:     widgetID,
		transport:    transport,
		store:        store,
		sink:         sink,
		pollInterval: defaultPollInterval,
		stopPoll:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Init fetches the widget configuration and mounts the initial view. A nil
// config is terminal: nothing is mounted and no polling starts, so a broken
// or unknown widget id leaves the host page untouched.
func (w *Widget) Init(ctx context.Context) error {
	raw := w.transport.InvokeQuery(ctx, "widget_public:getConfig", map[string]string{
		"widgetId": w.widgetID,
	})
	if raw == nil {
		return fmt.Errorf("widget %s: no configuration available", w.widgetID)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("widget %s: decode configuration: %w", w.widgetID, err)
	}

	w.mu.Lock()
	w.state.Config = cfg
	w.state.VisitorID = ResolveVisitorIdentity(w.store)
	w.state.ConversationID = resolveStoredConversation(w.store, w.widgetID)
	w.mounted = true
	w.sink.Mount(w.renderLocked())
	w.mu.Unlock()

	if cfg.AutoOpen {
		w.Open(ctx)
		return nil
	}

	// A returning visitor with a stored conversation gets their history and
	// unread badge before ever opening the window.
	if conversationID := w.conversationID(); conversationID != "" {
		messages := w.fetchMessages(ctx, w.visitorID(), conversationID)

		w.mu.Lock()
		w.state.Messages = messages
		w.mu.Unlock()

		w.refreshUnreadCount(ctx)
		w.startPolling()
	}

	return nil
}

// Open shows the chat window, lazily creating the conversation on first open
// and loading its history.
func (w *Widget) Open(ctx context.Context) {
	w.mu.Lock()
	if !w.mounted || w.state.IsOpen {
		w.mu.Unlock()
		return
	}
	w.state.IsOpen = true
	w.state.IsLoading = true
	w.sink.Render(w.renderLocked())
	visitorID := w.state.VisitorID
	conversationID := w.state.ConversationID
	w.mu.Unlock()

	if conversationID == "" {
		conversationID = w.ensureConversation(ctx, visitorID)
	}

	var messages []Message
	if conversationID != "" {
		messages = w.fetchMessages(ctx, visitorID, conversationID)
	}

	w.mu.Lock()
	w.state.ConversationID = conversationID
	w.state.IsLoading = false
	w.state.Messages = messages
	w.state.UnreadCount = 0
	w.sink.Render(w.renderLocked())
	w.sink.ScrollToEnd()
	w.mu.Unlock()

	if conversationID != "" {
		w.markRead(ctx, visitorID, conversationID)
		w.startPolling()
	}
}

// Close collapses the window back to the launcher and stops the poll timer.
// A Close on a widget that was never opened is a no-op, so the badge polling
// Init starts for a returning visitor keeps running.
func (w *Widget) Close() {
	w.mu.Lock()
	if !w.mounted || !w.state.IsOpen {
		w.mu.Unlock()
		return
	}
	w.state.IsOpen = false
	w.sink.Render(w.renderLocked())
	w.mu.Unlock()

	w.stopPolling()
}

// Send posts the visitor's message. The entry shows up immediately with a
// provisional id; a confirmed send replaces the whole list with the server's
// authoritative copy, a failed send leaves the provisional entry in place.
func (w *Widget) Send(ctx context.Context, text string) {
	body := strings.TrimSpace(text)
	if body == "" {
		return
	}

	w.mu.Lock()
	visitorID := w.state.VisitorID
	conversationID := w.state.ConversationID
	if visitorID == "" || conversationID == "" {
		w.mu.Unlock()
		return
	}
	w.state.Messages = append(w.state.Messages, Message{
		MessageID:  tempMessagePrefix + randomAlphanumeric(8),
		Body:       body,
		SenderType: "visitor",
		IsOwn:      true,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	w.sink.Render(w.renderLocked())
	w.sink.ScrollToEnd()
	w.mu.Unlock()

	raw := w.transport.InvokeMutation(ctx, "widget_public:sendMessage", map[string]string{
		"widgetId":       w.widgetID,
		"visitorId":      visitorID,
		"conversationId": conversationID,
		"body":           body,
	})
	if raw == nil {
		return
	}

	messages := w.fetchMessages(ctx, visitorID, conversationID)

	w.mu.Lock()
	w.state.Messages = messages
	w.sink.Render(w.renderLocked())
	w.sink.ScrollToEnd()
	w.mu.Unlock()
}

// Destroy stops the poll loop and removes the mounted view.
func (w *Widget) Destroy() {
	w.stopPolling()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}
	w.mounted = false
	w.sink.Unmount()
}

// Polling reports whether the background refresh loop is running.
func (w *Widget) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// StateSnapshot returns a copy of the current controller state.
func (w *Widget) StateSnapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := w.state
	snapshot.Messages = append([]Message(nil), w.state.Messages...)
	return snapshot
}

func (w *Widget) conversationID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.ConversationID
}

func (w *Widget) visitorID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.VisitorID
}

func (w *Widget) ensureConversation(ctx context.Context, visitorID string) string {
	raw := w.transport.InvokeMutation(ctx, "widget_public:getOrCreateConversation", map[string]interface{}{
		"widgetId":  w.widgetID,
		"visitorId": visitorID,
		"metadata": map[string]string{
			"url":       w.pageURL,
			"referrer":  w.referrer,
			"userAgent": w.userAgent,
		},
	})
	if raw == nil {
		return ""
	}

	var result struct {
		ConversationID string `json:"conversationId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || result.ConversationID == "" {
		return ""
	}

	persistConversation(w.store, w.widgetID, result.ConversationID)
	return result.ConversationID
}

// fetchMessages returns the server's view of the conversation. A nil reply
// maps to an empty list, never a kept stale one.
func (w *Widget) fetchMessages(ctx context.Context, visitorID, conversationID string) []Message {
	raw := w.transport.InvokeQuery(ctx, "widget_public:listMessages", map[string]string{
		"widgetId":       w.widgetID,
		"visitorId":      visitorID,
		"conversationId": conversationID,
	})
	if raw == nil {
		return []Message{}
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return []Message{}
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages
}

func (w *Widget) markRead(ctx context.Context, visitorID, conversationID string) {
	w.transport.InvokeMutation(ctx, "widget_public:markMessagesAsRead", map[string]string{
		"widgetId":       w.widgetID,
		"visitorId":      visitorID,
		"conversationId": conversationID,
	})
}

func (w *Widget) refreshUnreadCount(ctx context.Context) {
	w.mu.Lock()
	visitorID := w.state.VisitorID
	conversationID := w.state.ConversationID
	w.mu.Unlock()
	if conversationID == "" {
		return
	}

	raw := w.transport.InvokeQuery(ctx, "widget_public:getUnreadCount", map[string]string{
		"widgetId":       w.widgetID,
		"visitorId":      visitorID,
		"conversationId": conversationID,
	})
	if raw == nil {
		return
	}

	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return
	}

	w.mu.Lock()
	if count != w.state.UnreadCount {
		w.state.UnreadCount = count
		w.sink.Render(w.renderLocked())
	}
	w.mu.Unlock()
}

func (w *Widget) startPolling() {
	w.mu.Lock()
	if w.polling {
		w.mu.Unlock()
		return
	}
	w.polling = true
	w.stopPoll = make(chan struct{})
	stop := w.stopPoll
	w.mu.Unlock()

	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.pollOnce(context.Background())
			}
		}
	}()
}

func (w *Widget) stopPolling() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.polling {
		return
	}
	w.polling = false
	close(w.stopPoll)
}

// pollOnce runs one refresh cycle. While the window is open it reloads the
// message list and re-renders only when new messages arrived; while closed it
// only refreshes the launcher badge. A slow cycle is skipped over rather than
// stacked.
func (w *Widget) pollOnce(ctx context.Context) {
	w.mu.Lock()
	if w.pollInFlight {
		w.mu.Unlock()
		return
	}
	w.pollInFlight = true
	isOpen := w.state.IsOpen
	visitorID := w.state.VisitorID
	conversationID := w.state.ConversationID
	known := len(w.state.Messages)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.pollInFlight = false
		w.mu.Unlock()
	}()

	if conversationID == "" {
		return
	}

	if !isOpen {
		w.refreshUnreadCount(ctx)
		return
	}

	messages := w.fetchMessages(ctx, visitorID, conversationID)
	if len(messages) <= known {
		return
	}

	w.mu.Lock()
	w.state.Messages = messages
	w.sink.Render(w.renderLocked())
	w.sink.ScrollToEnd()
	w.mu.Unlock()

	w.markRead(ctx, visitorID, conversationID)
}

// renderLocked must be called with w.mu held.
func (w *Widget) renderLocked() string {
	return RenderMarkup(w.state.Config, w.state.IsOpen, w.state.Messages, w.state.UnreadCount, w.state.IsLoading)
}
