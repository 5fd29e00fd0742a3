package theme

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeTarget renders the theme on the <html> element of a parsed document.
type NodeTarget struct {
	root *html.Node
}

// NewNodeTarget finds the root element of doc. If doc has no <html> element,
// for example a fragment, doc itself is used.
func NewNodeTarget(doc *html.Node) *NodeTarget {
	return &NodeTarget{root: rootElement(doc)}
}

// SetAttribute sets or replaces the attribute on the root element.
func (n *NodeTarget) SetAttribute(name, value string) {
	for i, a := range n.root.Attr {
		if a.Namespace == "" && a.Key == name {
			n.root.Attr[i].Val = value
			return
		}
	}
	n.root.Attr = append(n.root.Attr, html.Attribute{Key: name, Val: value})
}

// Attribute returns the attribute value, empty if missing.
func (n *NodeTarget) Attribute(name string) string {
	for _, a := range n.root.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

func rootElement(doc *html.Node) *html.Node {
	if doc.Type == html.ElementNode && doc.DataAtom == atom.Html {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return doc
}
