package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UIAttr marks the root of the engine's own interface.
const UIAttr = "data-keyweave-ui"

// BoxAttr carries an element's hit-test box as "x,y,w,h".
const BoxAttr = "data-box"

// Element is a handle on an element node. The zero value is not usable;
// nil *Element means "no element".
type Element struct {
	node *html.Node
}

func wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return &Element{node: n}
}

// Node returns the underlying node.
func (e *Element) Node() *html.Node {
	return e.node
}

// Same reports whether both handles refer to the same node.
func (e *Element) Same(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.node == o.node
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	return attr(e.node, name)
}

// ID returns the id attribute, or "".
func (e *Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

// Classes returns the class list in document order.
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

// Parent returns the parent element, or nil at the document root.
func (e *Element) Parent() *Element {
	return wrap(e.node.Parent)
}

// IsTextField reports whether the element is an input or a textarea.
func (e *Element) IsTextField() bool {
	switch e.node.DataAtom {
	case atom.Input, atom.Textarea:
		return true
	}
	return false
}

// IsEditable reports whether keystrokes on the element belong to the page:
// form fields and contenteditable subtrees.
func (e *Element) IsEditable() bool {
	switch e.node.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return true
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if v, ok := attr(n, "contenteditable"); ok {
			return !strings.EqualFold(v, "false")
		}
	}
	return false
}

// InUI reports whether the element sits inside the engine's own interface.
func (e *Element) InUI() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(n, UIAttr); ok {
			return true
		}
	}
	return false
}

// Value returns the current value of a text field.
func (e *Element) Value() string {
	if e.node.DataAtom == atom.Textarea {
		return textContent(e.node)
	}
	v, _ := e.Attr("value")
	return v
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	return textContent(e.node)
}

// Box returns the element's hit-test box, if it has one.
func (e *Element) Box() (Rect, bool) {
	v, ok := e.Attr(BoxAttr)
	if !ok {
		return Rect{}, false
	}
	return parseRect(v)
}

func (e *Element) focusable() bool {
	switch e.node.DataAtom {
	case atom.Input, atom.Textarea, atom.Select, atom.Button:
		return true
	case atom.A:
		_, ok := e.Attr("href")
		return ok
	}
	if _, ok := e.Attr("tabindex"); ok {
		return true
	}
	return e.IsEditable()
}

func (e *Element) setValue(v string) {
	if e.node.DataAtom == atom.Textarea {
		for c := e.node.FirstChild; c != nil; {
			next := c.NextSibling
			e.node.RemoveChild(c)
			c = next
		}
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		return
	}
	setAttr(e.node, "value", v)
}

// Rect is an axis-aligned box in page coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether the point lies inside the box.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Center returns the middle of the box.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

func parseRect(s string) (Rect, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, false
		}
		v[i] = f
	}
	return Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, true
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
