// Package dropdown implements the click-toggle menu behavior over a parsed document.
//
// Each container holds one toggle element and arbitrary menu content. Clicking a toggle
// opens its container and closes every other one, clicking it again closes it, and a
// click anywhere outside all containers closes them all. The active class is the only
// thing a stylesheet needs to honor.
package dropdown

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Options name the classes of the markup contract.
type Options struct {
	ContainerClass string
	ToggleClass    string
	ActiveClass    string
}

// DefaultOptions returns the classes used by the site markup.
func DefaultOptions() Options {
	return Options{ContainerClass: "dropdown", ToggleClass: "dropdown-toggle", ActiveClass: "active"}
}

type menu struct {
	container *html.Node
	toggle    *html.Node // nil if the container has no toggle
}

// Controller tracks the dropdown containers of one document.
type Controller struct {
	opts  Options
	menus []menu
}

// Bind collects the containers of doc. Empty option fields take their defaults.
func Bind(doc *html.Node, opts Options) *Controller {
	def := DefaultOptions()
	if opts.ContainerClass == "" {
		opts.ContainerClass = def.ContainerClass
	}
	if opts.ToggleClass == "" {
		opts.ToggleClass = def.ToggleClass
	}
	if opts.ActiveClass == "" {
		opts.ActiveClass = def.ActiveClass
	}

	c := &Controller{opts: opts}
	walk(doc, func(n *html.Node) bool {
		if hasClass(n, opts.ContainerClass) {
			c.menus = append(c.menus, menu{container: n, toggle: find(n, opts.ToggleClass)})
		}
		return false
	})
	return c
}

// Len returns the number of tracked containers.
func (c *Controller) Len() int { return len(c.menus) }

// Click dispatches a click on target.
func (c *Controller) Click(target *html.Node) {
	if m, ok := c.toggleOf(target); ok {
		for _, other := range c.menus {
			if other.container != m.container {
				removeClass(other.container, c.opts.ActiveClass)
			}
		}
		if hasClass(m.container, c.opts.ActiveClass) {
			removeClass(m.container, c.opts.ActiveClass)
		} else {
			addClass(m.container, c.opts.ActiveClass)
		}
		return
	}
	if c.insideContainer(target) {
		return
	}
	c.CloseAll()
}

// Open clicks the toggle of the container whose id or data-menu attribute equals id,
// unless that container is already open. Returns false if no such container exists.
func (c *Controller) Open(id string) bool {
	for _, m := range c.menus {
		if m.toggle == nil || (getAttr(m.container, "id") != id && getAttr(m.container, "data-menu") != id) {
			continue
		}
		if !hasClass(m.container, c.opts.ActiveClass) {
			c.Click(m.toggle)
		}
		return true
	}
	return false
}

// CloseAll removes the active class from every container.
func (c *Controller) CloseAll() {
	for _, m := range c.menus {
		removeClass(m.container, c.opts.ActiveClass)
	}
}

// Active returns the open containers in document order.
func (c *Controller) Active() []*html.Node {
	var res []*html.Node
	for _, m := range c.menus {
		if hasClass(m.container, c.opts.ActiveClass) {
			res = append(res, m.container)
		}
	}
	return res
}

// toggleOf finds the innermost menu whose toggle contains target.
func (c *Controller) toggleOf(target *html.Node) (menu, bool) {
	for n := target; n != nil; n = n.Parent {
		for _, m := range c.menus {
			if m.toggle != nil && m.toggle == n {
				return m, true
			}
		}
	}
	return menu{}, false
}

func (c *Controller) insideContainer(target *html.Node) bool {
	for n := target; n != nil; n = n.Parent {
		if hasClass(n, c.opts.ContainerClass) {
			return true
		}
	}
	return false
}

// walk visits element nodes depth-first until fn returns true.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && fn(n) {
		return true
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if walk(ch, fn) {
			return true
		}
	}
	return false
}

// find returns the first descendant of n carrying class.
func find(n *html.Node, class string) *html.Node {
	var found *html.Node
	for ch := n.FirstChild; ch != nil && found == nil; ch = ch.NextSibling {
		walk(ch, func(x *html.Node) bool {
			if hasClass(x, class) {
				found = x
				return true
			}
			return false
		})
	}
	return found
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode || class == "" {
		return false
	}
	return slices.Contains(strings.Fields(getAttr(n, "class")), class)
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(getAttr(n, "class")+" "+class))
}

func removeClass(n *html.Node, class string) {
	if !hasClass(n, class) {
		return
	}
	fields := slices.DeleteFunc(strings.Fields(getAttr(n, "class")), func(s string) bool { return s == class })
	setAttr(n, "class", strings.Join(fields, " "))
}
