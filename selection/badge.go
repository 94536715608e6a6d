package selection

import (
	"errors"
	"strconv"

	"github.com/hazyhaar/domtarget/dom"
)

// Badge offsets from the target's top-left corner, in CSS pixels.
const (
	badgeOffsetTop  = -10
	badgeOffsetLeft = 4
)

var errDetached = errors.New("target has no layout box")

// badge is a fixed-position label pinned to a selected element. It follows
// layout changes through scroll (capture) and resize listeners until removed.
type badge struct {
	el     dom.Element
	target dom.Element
	unsub  []func()
}

func newBadge(target dom.Element, class, color, text string) (*badge, error) {
	doc := target.OwnerDocument()
	if doc == nil || doc.Body() == nil {
		return nil, errDetached
	}
	if _, ok := target.BoundingRect(); !ok {
		return nil, errDetached
	}

	el := doc.CreateElement("div")
	el.SetAttribute("class", class)
	el.SetAttribute("data-domtarget-badge", "")
	for _, kv := range [][2]string{
		{"position", "fixed"},
		{"z-index", "2147483647"},
		{"pointer-events", "none"},
		{"background", color},
		{"color", "#fff"},
		{"font", "600 11px/1.4 ui-monospace, monospace"},
		{"padding", "1px 5px"},
		{"border-radius", "3px"},
		{"white-space", "nowrap"},
	} {
		el.SetStyle(kv[0], kv[1])
	}
	el.SetTextContent(text)
	doc.Body().AppendChild(el)

	b := &badge{el: el, target: target}
	b.position()
	b.unsub = append(b.unsub,
		doc.AddEventListener(dom.EventScroll, func(dom.Event) { b.position() }, true),
		doc.AddEventListener(dom.EventResize, func(dom.Event) { b.position() }, false),
	)
	return b, nil
}

// position moves the badge to the target's current box. A target without a
// box leaves the badge where it is.
func (b *badge) position() {
	r, ok := b.target.BoundingRect()
	if !ok {
		return
	}
	b.el.SetStyle("top", px(r.Y+badgeOffsetTop))
	b.el.SetStyle("left", px(r.X+badgeOffsetLeft))
}

func (b *badge) setText(text string) { b.el.SetTextContent(text) }

func (b *badge) remove() {
	for _, fn := range b.unsub {
		fn()
	}
	b.unsub = nil
	b.el.Remove()
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
