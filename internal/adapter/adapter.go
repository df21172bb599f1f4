// Package adapter defines the per-platform contract between a host chat
// page and the reconciliation engine. Each supported platform ships one
// Adapter that knows where conversation rows live in that platform's
// markup and which text identifies a conversation. Everything downstream
// of the adapter is platform-agnostic.
package adapter

import (
	"golang.org/x/net/html"

	"github.com/convomarkapp/convomark-host/internal/domain"
)

// ConversationNode is one conversation row found in the live page.
type ConversationNode struct {
	// Node is the row element. Indicators attach inside this subtree.
	Node *html.Node
	// DisplayName is the conversation label as currently rendered.
	DisplayName string
}

// Adapter maps one platform's markup onto conversation rows. Enumerate is
// always called under the document's read lock and must not retain the
// nodes it returns beyond the pass that requested them.
type Adapter interface {
	// Origin names the platform this adapter understands.
	Origin() domain.Origin
	// Scope locates the element whose subtree holds the conversation
	// list. Nil means the page has not rendered it yet; the engine keeps
	// retrying until it appears.
	Scope(root *html.Node) *html.Node
	// Enumerate finds every conversation row under root. Rows whose
	// display name cannot be extracted are omitted, not errors; the next
	// pass retries them.
	Enumerate(root *html.Node) []ConversationNode
	// IndicatorAnchor picks the node an indicator is inserted after
	// within a row. Returning nil skips the row for this pass.
	IndicatorAnchor(row *html.Node) *html.Node
}
