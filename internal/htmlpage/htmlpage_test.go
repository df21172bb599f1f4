package htmlpage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const samplePage = `<html><body>
<ul class="chat-list">
  <li class="chat-row"><span class="title">Alice Johnson</span></li>
  <li class="chat-row"><span class="title">Bob  Stone</span></li>
</ul>
</body></html>`

func TestParseAndFind(t *testing.T) {
	doc, err := ParseString(samplePage)
	require.NoError(t, err)

	var rows []*html.Node
	doc.Read(func(root *html.Node) {
		rows = FindAll(root, func(n *html.Node) bool {
			return IsElement(n, "li") && HasClass(n, "chat-row")
		})
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "Alice Johnson", Text(rows[0]))
	// Text collapses runs of whitespace
	assert.Equal(t, "Bob Stone", Text(rows[1]))
}

func TestFindFirst(t *testing.T) {
	doc, err := ParseString(samplePage)
	require.NoError(t, err)

	doc.Read(func(root *html.Node) {
		first := FindFirst(root, func(n *html.Node) bool {
			return IsElement(n, "span")
		})
		require.NotNil(t, first)
		assert.Equal(t, "Alice Johnson", Text(first))

		missing := FindFirst(root, func(n *html.Node) bool {
			return IsElement(n, "video")
		})
		assert.Nil(t, missing)
	})
}

func TestAttrHelpers(t *testing.T) {
	n := NewElement("span", map[string]string{"class": "marker"})

	val, ok := Attr(n, "class")
	require.True(t, ok)
	assert.Equal(t, "marker", val)

	SetAttr(n, "data-rev", "5")
	val, ok = Attr(n, "data-rev")
	require.True(t, ok)
	assert.Equal(t, "5", val)

	// Replaces in place rather than appending a duplicate
	SetAttr(n, "data-rev", "6")
	val, _ = Attr(n, "data-rev")
	assert.Equal(t, "6", val)
	assert.Len(t, n.Attr, 2)

	_, ok = Attr(n, "missing")
	assert.False(t, ok)
}

func TestMutateBumpsVersionAndNotifies(t *testing.T) {
	doc, err := ParseString(samplePage)
	require.NoError(t, err)

	fired := 0
	cancel := doc.Observe(func() { fired++ })

	before := doc.Version()
	doc.Mutate(func(root *html.Node) {
		row := FindFirst(root, func(n *html.Node) bool {
			return IsElement(n, "li")
		})
		InsertAfter(row.FirstChild, NewElement("span", map[string]string{"class": "marker"}))
	})

	assert.Equal(t, before+1, doc.Version())
	assert.Equal(t, 1, fired)

	cancel()
	doc.Mutate(func(*html.Node) {})
	assert.Equal(t, 1, fired)
}

func TestInsertAfterAndRemove(t *testing.T) {
	doc, err := ParseString(samplePage)
	require.NoError(t, err)

	doc.Mutate(func(root *html.Node) {
		title := FindFirst(root, func(n *html.Node) bool {
			return IsElement(n, "span") && HasClass(n, "title")
		})
		InsertAfter(title, NewElement("span", map[string]string{"class": "marker"}))
	})

	var markers []*html.Node
	doc.Read(func(root *html.Node) {
		markers = FindAll(root, func(n *html.Node) bool {
			return HasClass(n, "marker")
		})
	})
	require.Len(t, markers, 1)

	doc.Mutate(func(*html.Node) {
		Remove(markers[0])
		// Removing twice is harmless
		Remove(markers[0])
	})

	doc.Read(func(root *html.Node) {
		assert.Empty(t, FindAll(root, func(n *html.Node) bool {
			return HasClass(n, "marker")
		}))
	})
}

func TestRender(t *testing.T) {
	doc, err := ParseString(`<html><body><p>hi</p></body></html>`)
	require.NoError(t, err)

	out, err := doc.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "<p>hi</p>")
}
