package widget

// Config mirrors the widget_public:getConfig payload. It is immutable for
// the lifetime of a Widget; the controller fetches it once during Init.
type Config struct {
	OrganizationName string `json:"organizationName"`
	BrandColor       string `json:"brandColor"`
	Position         string `json:"position"`
	GreetingText     string `json:"greetingText,omitempty"`
	ShowLauncher     bool   `json:"showLauncher"`
	AutoOpen         bool   `json:"autoOpen"`
	ZIndex           int    `json:"zIndex"`
}

// Message is one entry of a conversation as served by the backend. The
// controller also synthesizes provisional entries (temp_ id prefix) for
// optimistic display before the server confirms a send.
type Message struct {
	MessageID  string `json:"messageId"`
	Body       string `json:"body"`
	SenderType string `json:"senderType"`
	IsOwn      bool   `json:"isOwn"`
	CreatedAt  string `json:"createdAt"`
}

// State is the page-lifetime aggregate owned by the controller.
type State struct {
	IsOpen         bool
	IsLoading      bool
	Config         Config
	VisitorID      string
	ConversationID string
	Messages       []Message
	UnreadCount    int
}

// Sink is the mounted subtree the widget draws into: the host-program
// equivalent of the closed shadow DOM container.
type Sink interface {
	Mount(markup string)
	Render(markup string)
	ScrollToEnd()
	Unmount()
}
