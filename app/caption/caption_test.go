package caption

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestTransformer_Transform(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		tr       *Transformer
		count    int
		expected string
	}{
		{
			name:     "titled image becomes figure",
			body:     `<div class="post-content"><img src="a.jpg" alt="A" title="Caption A"></div>`,
			tr:       New(),
			count:    1,
			expected: `<div class="post-content"><figure class="md-figure"><img src="a.jpg" alt="A"/><figcaption>Caption A</figcaption></figure></div>`,
		},
		{
			name:     "alt text fallback",
			body:     `<div class="post-content"><img src="b.jpg" alt="Only alt"></div>`,
			tr:       New(),
			count:    1,
			expected: `<div class="post-content"><figure class="md-figure"><img src="b.jpg" alt="Only alt"/><figcaption>Only alt</figcaption></figure></div>`,
		},
		{
			name:     "alt ignored without fallback",
			body:     `<div class="post-content"><img src="b.jpg" alt="Only alt"></div>`,
			tr:       &Transformer{ContentClass: "post-content", FigureClass: "md-figure"},
			count:    0,
			expected: `<div class="post-content"><img src="b.jpg" alt="Only alt"/></div>`,
		},
		{
			name:     "no title and no alt left alone",
			body:     `<div class="post-content"><img src="c.jpg" class="hero"></div>`,
			tr:       New(),
			count:    0,
			expected: `<div class="post-content"><img src="c.jpg" class="hero"/></div>`,
		},
		{
			name:     "whitespace title counts as empty",
			body:     `<div class="post-content"><img src="c.jpg" title="   "></div>`,
			tr:       New(),
			count:    0,
			expected: `<div class="post-content"><img src="c.jpg" title="   "/></div>`,
		},
		{
			name:     "already wrapped image skipped",
			body:     `<div class="post-content"><figure><img src="d.jpg" title="T"></figure></div>`,
			tr:       New(),
			count:    0,
			expected: `<div class="post-content"><figure><img src="d.jpg" title="T"/></figure></div>`,
		},
		{
			name:     "images outside content region untouched",
			body:     `<header><img src="logo.png" title="Logo"></header><div class="post-content wide"><img src="e.jpg" title="E"></div>`,
			tr:       New(),
			count:    1,
			expected: `<header><img src="logo.png" title="Logo"/></header><div class="post-content wide"><figure class="md-figure"><img src="e.jpg"/><figcaption>E</figcaption></figure></div>`,
		},
		{
			name:     "zero value transforms whole document",
			body:     `<p><img src="f.jpg" title="F"></p>`,
			tr:       &Transformer{},
			count:    1,
			expected: `<p><figure><img src="f.jpg"/><figcaption>F</figcaption></figure></p>`,
		},
		{
			name:     "caption text is escaped",
			body:     `<div class="post-content"><img src="g.jpg" title="a &lt;b&gt; &amp; c"></div>`,
			tr:       New(),
			count:    1,
			expected: `<div class="post-content"><figure class="md-figure"><img src="g.jpg"/><figcaption>a &lt;b&gt; &amp; c</figcaption></figure></div>`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := parse(t, tc.body)
			assert.Equal(t, tc.count, tc.tr.Transform(doc))
			assert.Equal(t, tc.expected, renderBody(t, doc))
		})
	}
}

func TestTransformer_Idempotent(t *testing.T) {
	tr := New()
	doc := parse(t, `<div class="post-content"><p>text</p><img src="a.jpg" title="Caption A"><img src="b.jpg" alt="B"></div>`)

	require.Equal(t, 2, tr.Transform(doc))
	first := renderBody(t, doc)
	assert.Contains(t, first, `<figcaption>Caption A</figcaption>`)
	assert.NotContains(t, first, `title=`)

	assert.Equal(t, 0, tr.Transform(doc))
	assert.Equal(t, first, renderBody(t, doc))

	// the rendered output is also stable when parsed again
	assert.Equal(t, 0, tr.Transform(parse(t, first)))
}

func TestHasClass(t *testing.T) {
	doc := parse(t, `<div class=" a  post-content b"></div>`)
	div := doc.FirstChild.LastChild.FirstChild // html > body > div
	assert.True(t, hasClass(div, "post-content"))
	assert.False(t, hasClass(div, "post"))
	assert.False(t, hasClass(div, ""))
}

func parse(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><head></head><body>" + body + "</body></html>"))
	require.NoError(t, err)
	return doc
}

// renderBody renders the children of <body>.
func renderBody(t *testing.T, doc *html.Node) string {
	t.Helper()
	body := doc.FirstChild.LastChild
	require.Equal(t, "body", body.Data)
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		require.NoError(t, html.Render(&buf, c))
	}
	return buf.String()
}
