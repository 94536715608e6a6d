// Package dom is the narrow view of a live web page that the targeting
// engine works against. Two backends implement it: memdom (parsed HTML held
// in memory) and cdpdom (a Chrome tab driven over CDP).
//
// Every method is infallible by contract. Backends that talk to a remote
// page degrade to zero values when a call fails, the same way a detached
// node degrades in a browser.
package dom

// Event types the engine subscribes to.
const (
	EventMouseOver   = "mouseover"
	EventMouseOut    = "mouseout"
	EventClick       = "click"
	EventMouseDown   = "mousedown"
	EventMouseUp     = "mouseup"
	EventDblClick    = "dblclick"
	EventContextMenu = "contextmenu"
	EventScroll      = "scroll"
	EventResize      = "resize"
)

// Rect is a viewport rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Attribute is a single element attribute.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a DOM element.
type Element interface {
	// TagName is upper-case, as in the browser DOM.
	TagName() string
	Attribute(name string) (string, bool)
	// Attributes returns attributes in document order.
	Attributes() []Attribute
	SetAttribute(name, value string)
	// ParentElement is nil for the root element and for detached nodes.
	ParentElement() Element
	// Children returns element children only.
	Children() []Element
	// Contains is inclusive: el.Contains(el) is true.
	Contains(other Element) bool
	TextContent() string
	SetTextContent(text string)
	OuterHTML() string
	// BoundingRect reports false when the node has no layout box,
	// typically because it is no longer connected to the document.
	BoundingRect() (Rect, bool)

	Style(prop string) string
	SetStyle(prop, value string)
	RemoveStyle(prop string)

	AppendChild(child Element)
	Remove()

	// Property reads a field of the underlying node object, which is where
	// rendering frameworks leave their bookkeeping.
	Property(name string) (any, bool)
	// PropertyNames lists the node object's own enumerable keys.
	PropertyNames() []string

	OwnerDocument() Document
}

// Listener handles a dispatched event.
type Listener func(ev Event)

// Document is the page. It doubles as the window event target, so scroll and
// resize subscriptions go through AddEventListener too.
type Document interface {
	URL() string
	DocumentElement() Element
	Head() Element
	Body() Element
	// CountID reports how many elements carry the given id attribute.
	CountID(id string) int
	CreateElement(tag string) Element
	// AddEventListener registers l and returns the function that removes it.
	AddEventListener(typ string, l Listener, capture bool) (remove func())
}

// Event is a dispatched DOM event.
type Event interface {
	Type() string
	Target() Element
	PreventDefault()
	StopPropagation()
	StopImmediatePropagation()
	DefaultPrevented() bool
}

// Func stands in for a JavaScript function reachable from runtime internals.
// Props holds the function object's own properties (displayName, __file...).
type Func struct {
	Name  string
	Props map[string]any
}

// Get returns an own property of the function object.
func (f *Func) Get(key string) (any, bool) {
	if f == nil || f.Props == nil {
		return nil, false
	}
	v, ok := f.Props[key]
	return v, ok
}

// IsBody reports whether el is the document body of its own document.
func IsBody(el Element) bool {
	if el == nil {
		return false
	}
	doc := el.OwnerDocument()
	if doc == nil {
		return el.TagName() == "BODY"
	}
	return doc.Body() == el
}
