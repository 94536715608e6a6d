// Package memdom is an in-memory dom.Document built on golang.org/x/net/html.
//
// It is what the engine runs against offline (HTML snapshots, tests). Layout
// does not exist here: bounding rectangles are whatever SetRect assigned, and
// a zero rectangle otherwise. Event dispatch follows the DOM capture/target/
// bubble model so suppression by capture listeners can be observed.
package memdom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domtarget/dom"
)

// Document is an in-memory page.
type Document struct {
	url       string
	root      *Element // <html>
	listeners []*listener
}

// Element is an in-memory element. Pointer identity is node identity.
type Element struct {
	doc       *Document
	tag       string // lower-case local name
	attrs     []dom.Attribute
	parent    *Element
	nodes     []any // *Element or *textNode, document order
	rect      *dom.Rect
	props     map[string]any
	propKeys  []string
	listeners []*listener
}

type textNode struct {
	data    string
	comment bool
}

// New returns an empty document: <html><head></head><body></body></html>.
func New(url string) *Document {
	d := &Document{url: url}
	d.root = d.newElement("html")
	d.root.AppendChild(d.newElement("head"))
	d.root.AppendChild(d.newElement("body"))
	return d
}

// Parse reads an HTML document.
func Parse(r io.Reader, url string) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	d := &Document{url: url}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			d.root = d.convert(c)
			break
		}
	}
	if d.root == nil {
		return New(url), nil
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s, url string) (*Document, error) {
	return Parse(strings.NewReader(s), url)
}

func (d *Document) newElement(tag string) *Element {
	return &Element{doc: d, tag: strings.ToLower(tag)}
}

func (d *Document) convert(n *html.Node) *Element {
	el := d.newElement(n.Data)
	for _, a := range n.Attr {
		el.attrs = append(el.attrs, dom.Attribute{Name: a.Key, Value: a.Val})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			child := d.convert(c)
			child.parent = el
			el.nodes = append(el.nodes, child)
		case html.TextNode:
			el.nodes = append(el.nodes, &textNode{data: c.Data})
		case html.CommentNode:
			el.nodes = append(el.nodes, &textNode{data: c.Data, comment: true})
		}
	}
	return el
}

// --- dom.Document ---

func (d *Document) URL() string { return d.url }

func (d *Document) DocumentElement() dom.Element {
	if d.root == nil {
		return nil
	}
	return d.root
}

func (d *Document) Head() dom.Element {
	if h := d.rootChild("head"); h != nil {
		return h
	}
	return nil
}

func (d *Document) Body() dom.Element {
	if b := d.rootChild("body"); b != nil {
		return b
	}
	return nil
}

func (d *Document) rootChild(tag string) *Element {
	if d.root == nil {
		return nil
	}
	for _, n := range d.root.nodes {
		if el, ok := n.(*Element); ok && el.tag == tag {
			return el
		}
	}
	return nil
}

func (d *Document) CountID(id string) int {
	count := 0
	d.walk(func(el *Element) bool {
		if v, ok := el.Attribute("id"); ok && v == id {
			count++
		}
		return true
	})
	return count
}

func (d *Document) CreateElement(tag string) dom.Element {
	return d.newElement(tag)
}

func (d *Document) AddEventListener(typ string, l dom.Listener, capture bool) func() {
	return addListener(&d.listeners, typ, l, capture)
}

// ListenerCount reports live document-level listeners. Used to check that
// subscriptions are released.
func (d *Document) ListenerCount() int {
	return len(d.listeners)
}

// ElementByID returns the first connected element with the given id.
func (d *Document) ElementByID(id string) *Element {
	var found *Element
	d.walk(func(el *Element) bool {
		if v, ok := el.Attribute("id"); ok && v == id {
			found = el
			return false
		}
		return true
	})
	return found
}

// ElementsByTag returns connected elements with the given tag, document order.
func (d *Document) ElementsByTag(tag string) []*Element {
	tag = strings.ToLower(tag)
	var out []*Element
	d.walk(func(el *Element) bool {
		if el.tag == tag {
			out = append(out, el)
		}
		return true
	})
	return out
}

// HTML serialises the whole document.
func (d *Document) HTML() string {
	if d.root == nil {
		return ""
	}
	return "<!DOCTYPE html>" + d.root.OuterHTML()
}

// walk visits connected elements in document order until fn returns false.
func (d *Document) walk(fn func(*Element) bool) {
	if d.root == nil {
		return
	}
	var visit func(*Element) bool
	visit = func(el *Element) bool {
		if !fn(el) {
			return false
		}
		for _, n := range el.nodes {
			if c, ok := n.(*Element); ok {
				if !visit(c) {
					return false
				}
			}
		}
		return true
	}
	visit(d.root)
}

// --- dom.Element ---

func (e *Element) TagName() string { return strings.ToUpper(e.tag) }

func (e *Element) Attribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *Element) Attributes() []dom.Attribute {
	out := make([]dom.Attribute, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// SetAttribute sets or replaces an attribute.
func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, dom.Attribute{Name: name, Value: value})
}

// RemoveAttribute drops an attribute if present.
func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return
		}
	}
}

func (e *Element) ParentElement() dom.Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *Element) Children() []dom.Element {
	var out []dom.Element
	for _, n := range e.nodes {
		if c, ok := n.(*Element); ok {
			out = append(out, c)
		}
	}
	return out
}

func (e *Element) Contains(other dom.Element) bool {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false
	}
	for cur := o; cur != nil; cur = cur.parent {
		if cur == e {
			return true
		}
	}
	return false
}

func (e *Element) TextContent() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	for _, n := range e.nodes {
		switch v := n.(type) {
		case *textNode:
			if !v.comment {
				b.WriteString(v.data)
			}
		case *Element:
			v.writeText(b)
		}
	}
}

func (e *Element) SetTextContent(text string) {
	for _, n := range e.nodes {
		if c, ok := n.(*Element); ok {
			c.parent = nil
		}
	}
	e.nodes = nil
	if text != "" {
		e.nodes = []any{&textNode{data: text}}
	}
}

func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.toHTML()); err != nil {
		return ""
	}
	return buf.String()
}

func (e *Element) toHTML() *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: e.tag}
	for _, a := range e.attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: a.Name, Val: a.Value})
	}
	for _, c := range e.nodes {
		switch v := c.(type) {
		case *Element:
			n.AppendChild(v.toHTML())
		case *textNode:
			typ := html.TextNode
			if v.comment {
				typ = html.CommentNode
			}
			n.AppendChild(&html.Node{Type: typ, Data: v.data})
		}
	}
	return n
}

// Connected reports whether the element is attached to its document.
func (e *Element) Connected() bool {
	if e.doc == nil || e.doc.root == nil {
		return false
	}
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur == e.doc.root
}

func (e *Element) BoundingRect() (dom.Rect, bool) {
	if !e.Connected() {
		return dom.Rect{}, false
	}
	if e.rect != nil {
		return *e.rect, true
	}
	return dom.Rect{}, true
}

// SetRect assigns the layout box reported by BoundingRect.
func (e *Element) SetRect(r dom.Rect) {
	e.rect = &r
}

func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok || c == nil || c == e || c.Contains(e) {
		return
	}
	c.Remove()
	c.parent = e
	e.nodes = append(e.nodes, c)
}

func (e *Element) Remove() {
	p := e.parent
	if p == nil {
		return
	}
	for i, n := range p.nodes {
		if n == any(e) {
			p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
			break
		}
	}
	e.parent = nil
}

func (e *Element) Property(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

func (e *Element) PropertyNames() []string {
	out := make([]string, len(e.propKeys))
	copy(out, e.propKeys)
	return out
}

// SetProperty attaches a field to the node object, the way a rendering
// framework stores its bookkeeping on DOM nodes.
func (e *Element) SetProperty(name string, value any) {
	if e.props == nil {
		e.props = make(map[string]any)
	}
	if _, ok := e.props[name]; !ok {
		e.propKeys = append(e.propKeys, name)
	}
	e.props[name] = value
}

func (e *Element) OwnerDocument() dom.Document {
	if e.doc == nil {
		return nil
	}
	return e.doc
}

// AddEventListener registers a listener on the element itself (page code).
func (e *Element) AddEventListener(typ string, l dom.Listener, capture bool) func() {
	return addListener(&e.listeners, typ, l, capture)
}

// Append is a convenience for building fixtures: creates a child with the
// given tag and attributes (name, value pairs) and appends it.
func (e *Element) Append(tag string, attrs ...string) *Element {
	c := e.doc.newElement(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		c.SetAttribute(attrs[i], attrs[i+1])
	}
	e.AppendChild(c)
	return c
}
