package site

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestOutputPath(t *testing.T) {
	tests := []struct{ in, out string }{
		{"index.md", "index.html"},
		{"about.html", "about.html"},
		{"_posts/hello.md", "posts/hello.html"},
		{"_drafts/wip/page.html", "drafts/wip/page.html"},
		{"docs/_x.md", "docs/_x.html"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.out, OutputPath(tc.in))
		})
	}
}

func TestBuilder_Sources(t *testing.T) {
	root := newTestSite(t)
	b := newTestBuilder(t, root, DefaultConfig())

	sources, err := b.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{"_drafts/wip/idea.html", "_posts/hello.md", "about.html", "index.md"}, sources)
}

func TestBuilder_SourcesSkipOutput(t *testing.T) {
	root := newTestSite(t)
	writeSiteFile(t, root, "_site/old.html", "<p>stale</p>")
	cfg := DefaultConfig()
	cfg.Content = []string{"**/*.html"}
	b := newTestBuilder(t, root, cfg)

	sources, err := b.Sources()
	require.NoError(t, err)
	assert.NotContains(t, sources, "_site/old.html")
	assert.Contains(t, sources, "about.html")
}

func TestBuilder_Lookup(t *testing.T) {
	b := newTestBuilder(t, newTestSite(t), DefaultConfig())
	tests := []struct {
		url, src string
		found    bool
	}{
		{"/", "index.md", true},
		{"/index.html", "index.md", true},
		{"/posts/hello.html", "_posts/hello.md", true},
		{"/posts/hello", "_posts/hello.md", true},
		{"/about.html", "about.html", true},
		{"/../about.html", "about.html", true},
		{"/missing.html", "", false},
		{"/_posts/hello.md", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			src, ok := b.Lookup(tc.url)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.src, src)
		})
	}
}

func TestBuilder_Page(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Menus = []Menu{{ID: "more", Title: "More", Items: []Link{{Title: "About", URL: "/about.html"}}}}
	b := newTestBuilder(t, newTestSite(t), cfg)

	page, err := b.Page("_posts/hello.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello", page.Meta.Title)
	assert.Equal(t, 2, page.Figures)

	out := render(t, page.Doc)
	assert.Contains(t, out, `<figure class="md-figure"><img src="/img/a.jpg" alt="A"/><figcaption>Caption A</figcaption></figure>`)
	assert.Contains(t, out, `<figcaption>Only alt</figcaption>`)
	assert.Contains(t, out, `<img src="/img/plain.jpg" alt=""/>`, "image without caption untouched")
	assert.Contains(t, out, `<div class="dropdown" id="more">`)
	assert.Contains(t, out, `<a href="?menu=more" class="dropdown-toggle">More</a>`)
	assert.Contains(t, out, `<title>Hello | folio</title>`)

	t.Run("html page captions only in content region", func(t *testing.T) {
		page, err := b.Page("about.html")
		require.NoError(t, err)
		assert.Equal(t, 1, page.Figures)
		assert.Contains(t, render(t, page.Doc), `<img src="/logo.png" title="Logo"/>`)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := b.Page("nope.md")
		require.Error(t, err)
	})
}

func TestBuilder_Build(t *testing.T) {
	root := newTestSite(t)
	writeSiteFile(t, root, "draft.md", "---\ndraft: true\n---\n![x](/x.png \"x\")\n")
	b := newTestBuilder(t, root, DefaultConfig())

	stats, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Pages: 4, Figures: 3, Skipped: 1}, stats)

	out := filepath.Join(root, "_site")
	data, err := os.ReadFile(filepath.Join(out, "posts", "hello.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<figcaption>Caption A</figcaption>")

	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "drafts", "wip", "idea.html"))
	assert.FileExists(t, filepath.Join(out, "static", "site.css"))
	assert.FileExists(t, filepath.Join(out, "static", "highlight.css"))
	assert.NoFileExists(t, filepath.Join(out, "draft.html"))

	t.Run("rebuild is stable", func(t *testing.T) {
		_, err := b.Build(context.Background())
		require.NoError(t, err)
		again, err := os.ReadFile(filepath.Join(out, "posts", "hello.html"))
		require.NoError(t, err)
		assert.Equal(t, string(data), string(again))
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := b.Build(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewBuilder_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Content = nil
	_, err := NewBuilder(t.TempDir(), cfg)
	require.Error(t, err)
}

func newTestSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSiteFile(t, root, "index.md", "# Home\n\nWelcome.\n")
	writeSiteFile(t, root, "_posts/hello.md", "---\ntitle: Hello\n---\n"+
		"![A](/img/a.jpg \"Caption A\")\n\n![Only alt](/img/b.jpg)\n\n![](/img/plain.jpg)\n")
	writeSiteFile(t, root, "about.html", `<html><body><header><img src="/logo.png" title="Logo"></header>`+
		`<div class="post-content"><img src="/me.jpg" title="Me"></div></body></html>`)
	writeSiteFile(t, root, "_drafts/wip/idea.html", "<p>idea</p>")
	writeSiteFile(t, root, "notes.txt", "not content")
	return root
}

func newTestBuilder(t *testing.T, root string, cfg Config) *Builder {
	t.Helper()
	b, err := NewBuilder(root, cfg)
	require.NoError(t, err)
	return b
}

func writeSiteFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func render(t *testing.T, doc *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, doc))
	return buf.String()
}
