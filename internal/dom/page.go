package dom

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/keyweave/internal/input/key"
)

// Errors returned by Page commands.
var (
	ErrNotFound        = errors.New("element not found")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrNoHistory       = errors.New("no history entry")
)

// Default geometry when the document does not declare one.
const (
	DefaultViewportHeight = 800
	DefaultPageHeight     = 4000
)

// Option configures a Page.
type Option func(*Page)

// WithClock sets the clock used to timestamp events.
func WithClock(c clockwork.Clock) Option {
	return func(p *Page) { p.clock = c }
}

// WithViewportHeight sets the visible height used by relative scrolls.
func WithViewportHeight(h float64) Option {
	return func(p *Page) { p.viewport = h }
}

// Page is a headless document with focus, scroll position and history.
type Page struct {
	mu sync.Mutex

	doc      *html.Node
	clock    clockwork.Clock
	focused  *html.Node
	scrollY  float64
	viewport float64
	height   float64

	history []string
	pos     int
	reloads int

	listeners map[int]Listener
	nextID    int
	log       []Command
}

// NewPage wraps a parsed document loaded from rawURL.
func NewPage(doc *html.Node, rawURL string, opts ...Option) *Page {
	p := &Page{
		doc:       doc,
		clock:     clockwork.NewRealClock(),
		viewport:  DefaultViewportHeight,
		height:    DefaultPageHeight,
		history:   []string{rawURL},
		listeners: make(map[int]Listener),
	}
	if root := wrap(firstElement(doc, atom.Html)); root != nil {
		if v, ok := root.Attr("data-page-height"); ok {
			if h, err := strconv.ParseFloat(v, 64); err == nil && h > 0 {
				p.height = h
			}
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads an HTML document and wraps it.
func Parse(r io.Reader, rawURL string, opts ...Option) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewPage(doc, rawURL, opts...), nil
}

// ParseString is Parse for an in-memory document.
func ParseString(src, rawURL string, opts ...Option) (*Page, error) {
	return Parse(strings.NewReader(src), rawURL, opts...)
}

// Load reads an HTML file.
func Load(path, rawURL string, opts ...Option) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, rawURL, opts...)
}

// URL returns the current history entry.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history[p.pos]
}

// Host returns the hostname of the current URL.
func (p *Page) Host() string {
	u, err := url.Parse(p.URL())
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Subscribe registers a listener and returns a function that removes it.
func (p *Page) Subscribe(l Listener) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// dispatch delivers ev to all listeners. It must be called without p.mu held.
func (p *Page) dispatch(ev *Event) *Event {
	p.mu.Lock()
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	ls := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		ls = append(ls, p.listeners[id])
	}
	p.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
	return ev
}

func (p *Page) newEvent(t EventType, target *html.Node) *Event {
	return &Event{Type: t, Target: wrap(target), Time: p.clock.Now()}
}

// Query returns the first element matching a CSS selector.
func (p *Page) Query(selector string) (*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := sel.MatchFirst(p.doc)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return wrap(n), nil
}

// QueryAll returns every element matching a CSS selector.
func (p *Page) QueryAll(selector string) ([]*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := sel.MatchAll(p.doc)
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, wrap(n))
	}
	return out, nil
}

// ElementAt returns the topmost element whose box contains the point.
func (p *Page) ElementAt(x, y float64) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return wrap(p.elementAt(x, y))
}

func (p *Page) elementAt(x, y float64) *html.Node {
	var hit *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if v, ok := attr(n, BoxAttr); ok {
				if r, ok := parseRect(v); ok && r.Contains(x, y) {
					hit = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.doc)
	return hit
}

// Focused returns the focused element, or nil.
func (p *Page) Focused() *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return wrap(p.focused)
}

// Focus moves focus to el. A nil element blurs.
func (p *Page) Focus(el *Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el == nil {
		p.focused = nil
		return
	}
	p.focused = el.node
}

// ScrollY returns the vertical scroll offset.
func (p *Page) ScrollY() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollY
}

// Reloads returns how many times the page was reloaded.
func (p *Page) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// Selector synthesizes a selector for el against the current document.
func (p *Page) Selector(el *Element) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Synthesize(el)
}

// KeyDown dispatches a keydown, and a keyup, to the focused element or the
// body. Unless a listener prevents it, a printable key typed into a focused
// text field is appended to its value and an input event follows.
func (p *Page) KeyDown(raw key.RawEvent) *Event {
	p.mu.Lock()
	target := p.focused
	if target == nil {
		target = firstElement(p.doc, atom.Body)
	}
	p.mu.Unlock()

	ev := p.newEvent(EventKeyDown, target)
	ev.Key = raw
	p.dispatch(ev)

	if !ev.DefaultPrevented() && !raw.Ctrl && !raw.Meta && !raw.Alt && key.IsPrintable(raw.Key) {
		if el := wrap(target); el != nil && el.IsTextField() {
			p.appendValue(el, raw.Key)
		}
	}

	up := p.newEvent(EventKeyUp, target)
	up.Key = raw
	p.dispatch(up)
	return ev
}

// Click dispatches a user click on el at the centre of its box, focusing it
// when it can take focus.
func (p *Page) Click(el *Element) *Event {
	x, y := 0.0, 0.0
	if r, ok := el.Box(); ok {
		x, y = r.Center()
	}
	return p.click(el, x, y)
}

// ClickAt dispatches a click on the element under the point.
func (p *Page) ClickAt(x, y float64) (*Event, error) {
	el := p.ElementAt(x, y)
	if el == nil {
		return nil, fmt.Errorf("%w at (%g, %g)", ErrNotFound, x, y)
	}
	return p.click(el, x, y), nil
}

func (p *Page) click(el *Element, x, y float64) *Event {
	p.mu.Lock()
	if el.focusable() {
		p.focused = el.node
	}
	p.log = append(p.log, Command{Name: "click", Target: Synthesize(el)})
	p.mu.Unlock()

	ev := p.newEvent(EventClick, el.node)
	ev.X, ev.Y = x, y
	return p.dispatch(ev)
}

// ScrollBy scrolls vertically by dy and dispatches a scroll event.
func (p *Page) ScrollBy(dy float64) *Event {
	p.mu.Lock()
	before := p.scrollY
	p.scrollY = clamp(p.scrollY+dy, 0, p.maxScroll())
	delta := p.scrollY - before
	p.mu.Unlock()

	ev := p.newEvent(EventScroll, nil)
	ev.DeltaY = delta
	if delta == 0 {
		ev.DeltaY = dy
	}
	return p.dispatch(ev)
}

// Scroll directions understood by Scroll.
const (
	ScrollTop      = "top"
	ScrollBottom   = "bottom"
	ScrollUp       = "up"
	ScrollDown     = "down"
	ScrollPageUp   = "pageUp"
	ScrollPageDown = "pageDown"
)

// Scroll applies a named scroll. Relative directions move three quarters of
// the viewport; page directions move a full viewport.
func (p *Page) Scroll(direction string, smooth bool) error {
	p.mu.Lock()
	var target float64
	switch direction {
	case ScrollTop:
		target = 0
	case ScrollBottom:
		target = p.maxScroll()
	case ScrollUp:
		target = p.scrollY - p.viewport*0.75
	case ScrollDown:
		target = p.scrollY + p.viewport*0.75
	case ScrollPageUp:
		target = p.scrollY - p.viewport
	case ScrollPageDown:
		target = p.scrollY + p.viewport
	default:
		p.mu.Unlock()
		return fmt.Errorf("unknown scroll direction %q", direction)
	}
	detail := ""
	if smooth {
		detail = "smooth"
	}
	p.log = append(p.log, Command{Name: "scroll", Target: direction, Detail: detail})
	p.mu.Unlock()

	p.ScrollBy(target - p.ScrollY())
	return nil
}

func (p *Page) maxScroll() float64 {
	return max(p.height-p.viewport, 0)
}

// SetValue replaces a text field's value and dispatches input and change.
func (p *Page) SetValue(el *Element, value string) error {
	if el == nil {
		return ErrNotFound
	}
	p.mu.Lock()
	el.setValue(value)
	p.log = append(p.log, Command{Name: "fill", Target: Synthesize(el), Detail: strconv.Quote(value)})
	p.mu.Unlock()

	in := p.newEvent(EventInput, el.node)
	in.Value = value
	p.dispatch(in)

	ch := p.newEvent(EventChange, el.node)
	ch.Value = value
	p.dispatch(ch)
	return nil
}

// TypeText appends text to the focused text field and dispatches input. It
// reports false when no text field has focus.
func (p *Page) TypeText(text string) bool {
	el := p.Focused()
	if el == nil || !el.IsTextField() {
		return false
	}
	p.mu.Lock()
	p.log = append(p.log, Command{Name: "type", Target: Synthesize(el), Detail: strconv.Quote(text)})
	p.mu.Unlock()
	p.appendValue(el, text)
	return true
}

func (p *Page) appendValue(el *Element, text string) {
	p.mu.Lock()
	v := el.Value() + text
	el.setValue(v)
	p.mu.Unlock()

	in := p.newEvent(EventInput, el.node)
	in.Value = v
	p.dispatch(in)
}

// Keypress dispatches a synthetic keydown and keyup pair for k.
func (p *Page) Keypress(k string) {
	p.mu.Lock()
	target := p.focused
	if target == nil {
		target = firstElement(p.doc, atom.Body)
	}
	p.log = append(p.log, Command{Name: "keypress", Target: k})
	p.mu.Unlock()

	for _, t := range []EventType{EventKeyDown, EventKeyUp} {
		ev := p.newEvent(t, target)
		ev.Key = key.RawEvent{Key: k}
		ev.Synthetic = true
		p.dispatch(ev)
	}
}

// Navigation kinds understood by Navigate.
const (
	NavBack    = "back"
	NavForward = "forward"
	NavReload  = "reload"
)

// Navigate moves through history or reloads.
func (p *Page) Navigate(kind string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case NavBack:
		if p.pos == 0 {
			return fmt.Errorf("%w: back", ErrNoHistory)
		}
		p.pos--
	case NavForward:
		if p.pos >= len(p.history)-1 {
			return fmt.Errorf("%w: forward", ErrNoHistory)
		}
		p.pos++
	case NavReload:
		p.reloads++
	default:
		return fmt.Errorf("unknown navigation %q", kind)
	}
	p.log = append(p.log, Command{Name: "navigate", Target: kind})
	return nil
}

// Visit pushes a new history entry, dropping any forward entries.
func (p *Page) Visit(rawURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history[:p.pos+1], rawURL)
	p.pos++
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
