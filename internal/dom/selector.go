package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const maxSelectorClasses = 3

// Synthesize builds a CSS selector for el, preferring in order:
//
//  1. "#id" when the id is unique in the document
//  2. tag plus up to three classes when that combination is unique
//  3. a structural "tag:nth-of-type(k)" path joined with ">", anchored at
//     the nearest ancestor with a unique id, or at the html root
//
// The first two resolve to el at synthesis time. The structural path can
// point elsewhere after the document changes. A nil element yields "".
func Synthesize(el *Element) string {
	if el == nil {
		return ""
	}
	root := documentRoot(el.node)

	if id := el.ID(); id != "" {
		sel := "#" + Escape(id)
		if unique(root, sel) {
			return sel
		}
	}

	if classes := el.Classes(); len(classes) > 0 {
		if len(classes) > maxSelectorClasses {
			classes = classes[:maxSelectorClasses]
		}
		var b strings.Builder
		b.WriteString(el.Tag())
		for _, c := range classes {
			b.WriteByte('.')
			b.WriteString(Escape(c))
		}
		if sel := b.String(); unique(root, sel) {
			return sel
		}
	}

	return structuralPath(root, el.node)
}

func structuralPath(root, n *html.Node) string {
	var segs []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		tag := strings.ToLower(cur.Data)
		if tag == "html" {
			segs = append(segs, tag)
			break
		}
		segs = append(segs, fmt.Sprintf("%s:nth-of-type(%d)", tag, nthOfType(cur)))

		parent := cur.Parent
		if parent == nil || parent.Type != html.ElementNode {
			break
		}
		if id, ok := attr(parent, "id"); ok && id != "" {
			anchor := "#" + Escape(id)
			if unique(root, anchor) {
				segs = append(segs, anchor)
				break
			}
		}
	}

	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, " > ")
}

func nthOfType(n *html.Node) int {
	k := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && strings.EqualFold(s.Data, n.Data) {
			k++
		}
	}
	return k
}

func documentRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func unique(root *html.Node, selector string) bool {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return false
	}
	return len(sel.MatchAll(root)) == 1
}

// Escape serializes s as a CSS identifier, following CSS.escape().
func Escape(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			b.WriteByte('\\')
			b.WriteString(strconv.FormatInt(int64(r), 16))
			b.WriteByte(' ')
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString(`\-`)
		case r >= 0x80, r == '-', r == '_',
			r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
