package widget

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

// RenderMarkup is a pure function of widget state. The whole subtree is
// replaced on every state change, so it emits the complete markup each time:
// the launcher while closed, the chat window while open.
func RenderMarkup(cfg Config, isOpen bool, messages []Message, unreadCount int, isLoading bool) string {
	var buf bytes.Buffer
	err := markupTemplate.Execute(&buf, markupData{
		Config:      cfg,
		IsOpen:      isOpen,
		Messages:    messages,
		UnreadCount: unreadCount,
		IsLoading:   isLoading,
	})
	if err != nil {
		return ""
	}
	return buf.String()
}

type markupData struct {
	Config      Config
	IsOpen      bool
	Messages    []Message
	UnreadCount int
	IsLoading   bool
}

var markupTemplate = template.Must(template.New("widget").Funcs(template.FuncMap{
	"badge": badgeLabel,
	"clock": clockLabel,
}).Parse(markupSource))

// badgeLabel caps the displayed unread count at 99+.
func badgeLabel(count int) string {
	if count > 99 {
		return "99+"
	}
	return strconv.Itoa(count)
}

// clockLabel renders a message timestamp in the viewer's local time.
func clockLabel(createdAt string) string {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ""
	}
	return ts.Local().Format("15:04")
}

const markupSource = `{{- if and .Config.ShowLauncher (not .IsOpen) -}}
<button class="reflet-launcher" type="button" data-reflet-action="open" style="z-index:{{.Config.ZIndex}};background:{{.Config.BrandColor}}">
<span class="reflet-launcher-icon"></span>
{{- if gt .UnreadCount 0}}<span class="reflet-badge">{{badge .UnreadCount}}</span>{{- end}}
</button>
{{- end -}}
{{- if .IsOpen -}}
<div class="reflet-window reflet-position-{{.Config.Position}}" style="z-index:{{.Config.ZIndex}}">
<header class="reflet-header" style="background:{{.Config.BrandColor}}">
<div class="reflet-header-text">
<strong class="reflet-title">{{.Config.OrganizationName}}</strong>
{{- if .Config.GreetingText}}<span class="reflet-subtitle">{{.Config.GreetingText}}</span>{{- end}}
</div>
<button class="reflet-close" type="button" data-reflet-action="close">&times;</button>
</header>
<div class="reflet-messages">
{{- if .IsLoading}}
<div class="reflet-spinner"></div>
{{- else if not .Messages}}
<div class="reflet-empty">
<div class="reflet-empty-art"></div>
<p>Send a message to start the conversation.</p>
</div>
{{- else}}
{{- range .Messages}}
<div class="reflet-message {{if .IsOwn}}reflet-message-own{{else}}reflet-message-other{{end}}">
<div class="reflet-bubble">{{.Body}}</div>
<time class="reflet-time">{{clock .CreatedAt}}</time>
</div>
{{- end}}
{{- end}}
</div>
<div class="reflet-input">
<textarea class="reflet-textarea" rows="1" placeholder="Write a message..."></textarea>
<button class="reflet-send" type="button" data-reflet-action="send" style="background:{{.Config.BrandColor}}">Send</button>
</div>
</div>
{{- end -}}`

// BaseStyles is the scoped stylesheet a host injects next to the markup so
// the widget keeps its look regardless of the surrounding page.
const BaseStyles = `.reflet-launcher{position:fixed;bottom:20px;right:20px;width:56px;height:56px;border:none;border-radius:50%;cursor:pointer;box-shadow:0 4px 12px rgba(0,0,0,.25)}
.reflet-badge{position:absolute;top:-4px;right:-4px;min-width:20px;height:20px;padding:0 5px;border-radius:10px;background:#e11d48;color:#fff;font-size:12px;line-height:20px}
.reflet-window{position:fixed;bottom:20px;right:20px;width:360px;height:520px;display:flex;flex-direction:column;background:#fff;border-radius:12px;overflow:hidden;box-shadow:0 8px 30px rgba(0,0,0,.3)}
.reflet-position-bottom-left{right:auto;left:20px}
.reflet-header{display:flex;justify-content:space-between;align-items:center;padding:14px 16px;color:#fff}
.reflet-subtitle{display:block;font-size:12px;opacity:.85}
.reflet-close{background:none;border:none;color:#fff;font-size:20px;cursor:pointer}
.reflet-messages{flex:1;overflow-y:auto;padding:12px}
.reflet-message{margin-bottom:10px;display:flex;flex-direction:column}
.reflet-message-own{align-items:flex-end}
.reflet-message-other{align-items:flex-start}
.reflet-bubble{max-width:80%;padding:8px 12px;border-radius:14px;background:#f1f5f9;font-size:14px;white-space:pre-wrap;word-break:break-word}
.reflet-message-own .reflet-bubble{background:#e0e7ff}
.reflet-time{font-size:11px;color:#94a3b8;margin-top:2px}
.reflet-empty{text-align:center;color:#64748b;font-size:14px;margin-top:40%}
.reflet-spinner{width:28px;height:28px;margin:40% auto 0;border:3px solid #e2e8f0;border-top-color:#6366f1;border-radius:50%;animation:reflet-spin 1s linear infinite}
@keyframes reflet-spin{to{transform:rotate(360deg)}}
.reflet-input{display:flex;gap:8px;padding:10px;border-top:1px solid #e2e8f0}
.reflet-textarea{flex:1;resize:none;border:1px solid #e2e8f0;border-radius:8px;padding:8px;font-size:14px}
.reflet-send{border:none;border-radius:8px;color:#fff;padding:0 14px;cursor:pointer}`
