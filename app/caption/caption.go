// Package caption turns titled images into captioned figures.
//
// Markdown images carry their caption in the title, e.g. ![alt](/img.jpg "Caption text").
// The transformer wraps each such image in <figure> with a <figcaption> and drops the title,
// so browsers don't show the same text again as a tooltip.
package caption

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Transformer rewrites images inside content regions. The zero value transforms
// every image of the document and uses no figure class; use New for site defaults.
type Transformer struct {
	ContentClass string // class of the region holding post content, empty for whole document
	FigureClass  string // class set on created figures
	AltFallback  bool   // use alt text when the title is missing
}

// New returns a transformer with the site defaults: images inside ".post-content",
// figures styled with "md-figure" and alt text used as a caption fallback.
func New() *Transformer {
	return &Transformer{ContentClass: "post-content", FigureClass: "md-figure", AltFallback: true}
}

// Transform rewrites doc in place and returns the number of figures created.
// Images already inside a figure or without caption text are left untouched,
// which makes repeated runs a no-op.
func (t *Transformer) Transform(doc *html.Node) int {
	var images []*html.Node
	collect(doc, t.ContentClass == "", t.ContentClass, &images)

	count := 0
	for _, img := range images {
		if img.Parent == nil || isFigure(img.Parent) {
			continue
		}
		text := t.captionText(img)
		if text == "" {
			continue
		}
		wrap(img, text, t.FigureClass)
		count++
	}
	return count
}

// captionText picks the title, falling back to alt if enabled. Whitespace-only text is empty.
func (t *Transformer) captionText(img *html.Node) string {
	if title := strings.TrimSpace(attr(img, "title")); title != "" {
		return title
	}
	if t.AltFallback {
		return strings.TrimSpace(attr(img, "alt"))
	}
	return ""
}

// collect gathers images in document order. Images count only once inside a content region.
func collect(n *html.Node, inContent bool, contentClass string, out *[]*html.Node) {
	if n.Type == html.ElementNode {
		if !inContent && hasClass(n, contentClass) {
			inContent = true
		}
		if inContent && n.DataAtom == atom.Img {
			*out = append(*out, n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, inContent, contentClass, out)
	}
}

func wrap(img *html.Node, text, figureClass string) {
	figure := &html.Node{Type: html.ElementNode, Data: "figure", DataAtom: atom.Figure}
	if figureClass != "" {
		figure.Attr = []html.Attribute{{Key: "class", Val: figureClass}}
	}
	img.Parent.InsertBefore(figure, img)
	img.Parent.RemoveChild(img)
	figure.AppendChild(img)

	caption := &html.Node{Type: html.ElementNode, Data: "figcaption", DataAtom: atom.Figcaption}
	caption.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	figure.AppendChild(caption)

	img.Attr = slices.DeleteFunc(img.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == "title"
	})
}

func isFigure(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Figure
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether the element carries class in its class list.
func hasClass(n *html.Node, class string) bool {
	if class == "" {
		return false
	}
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
