package adapter

import (
	"golang.org/x/net/html"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/htmlpage"
)

// maxRowDepth bounds the walk below a matched row when extracting its
// title, so a pathological page cannot stall a pass.
const maxRowDepth = 12

// ListChatConfig describes where a list-style chat page keeps its
// conversation rows. The shipped platforms all render a sidebar list of
// rows with a title element inside, differing only in tag and class names.
type ListChatConfig struct {
	Origin domain.Origin
	// ScopeClass marks the container holding the conversation list.
	ScopeClass string
	// RowClass marks a conversation row element.
	RowClass string
	// TitleClass marks the element inside a row holding the display name.
	TitleClass string
}

// ListChat is the Adapter for list-style chat sidebars. It is the only
// adapter shape the shipped platforms need; a platform with a genuinely
// different layout supplies its own Adapter.
type ListChat struct {
	cfg ListChatConfig
}

// NewListChat builds an adapter from a platform's row/title selectors.
func NewListChat(cfg ListChatConfig) *ListChat {
	return &ListChat{cfg: cfg}
}

// Origin names the platform.
func (a *ListChat) Origin() domain.Origin {
	return a.cfg.Origin
}

// Scope finds the conversation list container, nil while the page is
// still loading it.
func (a *ListChat) Scope(root *html.Node) *html.Node {
	return htmlpage.FindFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && htmlpage.HasClass(n, a.cfg.ScopeClass)
	})
}

// Enumerate finds conversation rows by class and extracts their titles.
// Rows without a title element, or with an empty title, are skipped.
func (a *ListChat) Enumerate(root *html.Node) []ConversationNode {
	rows := htmlpage.FindAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && htmlpage.HasClass(n, a.cfg.RowClass)
	})

	out := make([]ConversationNode, 0, len(rows))
	for _, row := range rows {
		title := a.findTitle(row)
		if title == nil {
			continue
		}
		name := htmlpage.Text(title)
		if name == "" {
			continue
		}
		out = append(out, ConversationNode{Node: row, DisplayName: name})
	}
	return out
}

// IndicatorAnchor attaches indicators after the row's title element.
func (a *ListChat) IndicatorAnchor(row *html.Node) *html.Node {
	return a.findTitle(row)
}

func (a *ListChat) findTitle(row *html.Node) *html.Node {
	var found *html.Node
	depth := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil || depth > maxRowDepth {
			return
		}
		if n.Type == html.ElementNode && htmlpage.HasClass(n, a.cfg.TitleClass) {
			found = n
			return
		}
		depth++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		depth--
	}
	walk(row)
	return found
}

// WhatsAppWeb returns the adapter for WhatsApp Web's sidebar markup.
func WhatsAppWeb() *ListChat {
	return NewListChat(ListChatConfig{
		Origin:     domain.OriginWhatsApp,
		ScopeClass: "chat-list",
		RowClass:   "chat-row",
		TitleClass: "chat-title",
	})
}

// MessengerWeb returns the adapter for Messenger's sidebar markup.
func MessengerWeb() *ListChat {
	return NewListChat(ListChatConfig{
		Origin:     domain.OriginMessenger,
		ScopeClass: "conversation-list",
		RowClass:   "conversation-item",
		TitleClass: "conversation-name",
	})
}

// TelegramWeb returns the adapter for Telegram Web's sidebar markup.
func TelegramWeb() *ListChat {
	return NewListChat(ListChatConfig{
		Origin:     domain.OriginTelegram,
		ScopeClass: "dialogs-list",
		RowClass:   "dialog-row",
		TitleClass: "dialog-title",
	})
}

// InstagramWeb returns the adapter for Instagram's inbox markup.
func InstagramWeb() *ListChat {
	return NewListChat(ListChatConfig{
		Origin:     domain.OriginInstagram,
		ScopeClass: "thread-list",
		RowClass:   "thread-item",
		TitleClass: "thread-username",
	})
}
