package reconcile

import (
	"context"
	"strconv"

	"golang.org/x/net/html"

	"github.com/convomarkapp/convomark-host/internal/domain"
	"github.com/convomarkapp/convomark-host/internal/htmlpage"
	"github.com/convomarkapp/convomark-host/internal/rpc"
)

// Markup the engine owns inside the host page. Everything it injects is
// identifiable by IndicatorClass so a pass can find its own work.
const (
	IndicatorClass = "convomark-indicator"

	attrFingerprint = "data-convomark-fp"
	attrRevision    = "data-convomark-rev"
	attrStyle       = "data-convomark-style"
)

// indicatorRevision derives the revision stamp for an annotation's
// indicator. The store bumps UpdatedAt on every write, so any change to
// the annotation changes the stamp and the indicator gets refreshed.
func indicatorRevision(a *domain.Annotation) string {
	return strconv.FormatInt(a.UpdatedAt.UnixMilli(), 10)
}

// insertOp records one indicator to create during the apply phase.
type insertOp struct {
	anchor *html.Node
	ann    *domain.Annotation
	fp     string
}

// refreshOp records one stale indicator to restamp in place.
type refreshOp struct {
	node *html.Node
	ann  *domain.Annotation
}

// pass runs one reconciliation: fetch the store's view, diff it against
// the rows currently rendered, and apply the difference. A row-level
// problem skips that row; the rest of the pass proceeds.
func (e *Engine) pass(ctx context.Context) error {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		// Indicators still render with defaults when settings are
		// unreachable; the pass is not abandoned for cosmetics.
		settings = domain.DefaultSettings()
	}

	anns, err := e.store.ListAnnotations(ctx, rpc.ListAnnotationsPayload{
		Origin: string(e.adapter.Origin()),
	})
	if err != nil {
		return err
	}

	byFingerprint := make(map[string]*domain.Annotation, len(anns))
	for _, a := range anns {
		byFingerprint[a.ConversationFingerprint] = a
	}

	var (
		inserts   []insertOp
		refreshes []refreshOp
		removals  []*html.Node
	)

	e.doc.Read(func(root *html.Node) {
		scope := e.adapter.Scope(root)
		if scope == nil {
			// List disappeared, likely mid-rerender. The mutation that
			// brings it back schedules the next pass.
			return
		}

		for _, row := range e.adapter.Enumerate(scope) {
			fp := e.fp.Fingerprint(row.DisplayName)
			indicator := findIndicator(row.Node)
			ann := byFingerprint[fp]

			switch {
			case ann == nil && indicator != nil:
				removals = append(removals, indicator)

			case ann != nil && indicator == nil:
				anchor := e.adapter.IndicatorAnchor(row.Node)
				if anchor == nil {
					continue
				}
				inserts = append(inserts, insertOp{anchor: anchor, ann: ann, fp: fp})

			case ann != nil && indicator != nil:
				rev, _ := htmlpage.Attr(indicator, attrRevision)
				if rev != indicatorRevision(ann) {
					refreshes = append(refreshes, refreshOp{node: indicator, ann: ann})
				}
			}
		}
	})

	if len(inserts) == 0 && len(refreshes) == 0 && len(removals) == 0 {
		return nil
	}

	e.selfMutating.Store(true)
	defer e.selfMutating.Store(false)

	e.doc.Mutate(func(*html.Node) {
		for _, n := range removals {
			htmlpage.Remove(n)
		}
		for _, op := range refreshes {
			stampIndicator(op.node, op.ann, settings)
		}
		for _, op := range inserts {
			n := htmlpage.NewElement("span", map[string]string{
				"class":         IndicatorClass,
				attrFingerprint: op.fp,
			})
			stampIndicator(n, op.ann, settings)
			htmlpage.InsertAfter(op.anchor, n)
		}
	})

	e.logger.Debug("reconciliation pass applied",
		"origin", e.adapter.Origin(),
		"inserted", len(inserts),
		"refreshed", len(refreshes),
		"removed", len(removals),
	)
	return nil
}

// stampIndicator writes the annotation's current state onto an indicator
// node. Idempotent: stamping twice with the same annotation is a no-op.
func stampIndicator(n *html.Node, a *domain.Annotation, settings *domain.Settings) {
	htmlpage.SetAttr(n, attrRevision, indicatorRevision(a))
	htmlpage.SetAttr(n, attrStyle, settings.IndicatorStyle)
	if settings.ShowNotePreview && a.Note != "" {
		htmlpage.SetAttr(n, "title", a.Note)
	}
}

// findIndicator locates the engine's indicator inside a row, nil if the
// row is unmarked.
func findIndicator(row *html.Node) *html.Node {
	return htmlpage.FindFirst(row, func(n *html.Node) bool {
		return n.Type == html.ElementNode && htmlpage.HasClass(n, IndicatorClass)
	})
}
