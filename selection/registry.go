// Package selection owns the set of user-selected DOM elements.
//
// The Registry is the only writer of selection decoration: the outline on the
// element's inline style and the floating badge labelling it. Everything else
// reads membership through HasElement.
package selection

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domtarget/component"
	"github.com/hazyhaar/domtarget/dom"
)

// DefaultPalette is the round-robin colour sequence for new selections.
var DefaultPalette = []string{
	"#3b82f6", // blue
	"#ef4444", // red
	"#10b981", // green
	"#f59e0b", // amber
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f97316", // orange
}

// DefaultBadgeClass marks badge elements so an ignore predicate can skip them.
const DefaultBadgeClass = "domtarget-ignore"

type record struct {
	el    dom.Element
	color string
	index int
	badge *badge
	// label is the badge text after the "(n) " prefix.
	label string
	// prevOutline and prevOffset are the inline values the page had.
	prevOutline string
	prevOffset  string
}

// Registry tracks selected elements in insertion order.
type Registry struct {
	records    []*record
	byElement  map[dom.Element]*record
	palette    []string
	nextColor  int
	badgeClass string
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithPalette replaces DefaultPalette. An empty palette is ignored.
func WithPalette(colors ...string) Option {
	return func(r *Registry) {
		if len(colors) > 0 {
			r.palette = colors
		}
	}
}

// WithBadgeClass sets the class carried by badge elements.
func WithBadgeClass(class string) Option {
	return func(r *Registry) { r.badgeClass = class }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byElement:  make(map[dom.Element]*record),
		palette:    DefaultPalette,
		badgeClass: DefaultBadgeClass,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// SelectElement adds el to the selection with the next palette colour and
// index count+1, outlines it and pins a badge to it. finder may be nil.
// Selecting an already selected element is a no-op.
func (r *Registry) SelectElement(el dom.Element, finder component.Finder) {
	if el == nil {
		return
	}
	if _, ok := r.byElement[el]; ok {
		return
	}

	rec := &record{
		el:          el,
		color:       r.palette[r.nextColor%len(r.palette)],
		index:       len(r.records) + 1,
		prevOutline: el.Style("outline"),
		prevOffset:  el.Style("outline-offset"),
	}
	r.nextColor++

	var info *component.Info
	if finder != nil {
		info = finder(el)
	}
	rec.label = badgeLabel(el, info)

	el.SetStyle("outline", "3px solid "+rec.color)
	el.SetStyle("outline-offset", "-1px")

	r.records = append(r.records, rec)
	r.byElement[el] = rec

	b, err := newBadge(el, r.badgeClass, rec.color, rec.text())
	if err != nil {
		r.logger.Debug("selection: badge skipped", "tag", el.TagName(), "error", err)
	}
	rec.badge = b
}

// DeselectElement removes el from the selection and renumbers the rest.
func (r *Registry) DeselectElement(el dom.Element) {
	rec, ok := r.byElement[el]
	if !ok {
		return
	}
	r.undecorate(rec)
	delete(r.byElement, el)
	for i, cur := range r.records {
		if cur == rec {
			r.records = append(r.records[:i], r.records[i+1:]...)
			break
		}
	}
	r.renumber()
}

// ClearAllSelections removes every selection and resets the colour cycle.
func (r *Registry) ClearAllSelections() {
	for _, rec := range r.records {
		r.undecorate(rec)
	}
	r.records = nil
	r.byElement = make(map[dom.Element]*record)
	r.nextColor = 0
}

func (r *Registry) HasElement(el dom.Element) bool {
	_, ok := r.byElement[el]
	return ok
}

func (r *Registry) SelectedCount() int { return len(r.records) }

// Selected returns the selected elements in index order.
func (r *Registry) Selected() []dom.Element {
	out := make([]dom.Element, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.el
	}
	return out
}

// Index returns the 1-based index of el, or 0 when el is not selected.
func (r *Registry) Index(el dom.Element) int {
	if rec, ok := r.byElement[el]; ok {
		return rec.index
	}
	return 0
}

// Color returns the selection colour of el, or "".
func (r *Registry) Color(el dom.Element) string {
	if rec, ok := r.byElement[el]; ok {
		return rec.color
	}
	return ""
}

// FindSelectedParent returns the nearest selected ancestor of el below the
// document body, or nil.
func (r *Registry) FindSelectedParent(el dom.Element) dom.Element {
	if el == nil {
		return nil
	}
	for cur := el.ParentElement(); cur != nil && !dom.IsBody(cur); cur = cur.ParentElement() {
		if r.HasElement(cur) {
			return cur
		}
	}
	return nil
}

// FindSelectedChildren returns every selected proper descendant of el, at
// any depth, in index order.
func (r *Registry) FindSelectedChildren(el dom.Element) []dom.Element {
	var out []dom.Element
	if el == nil {
		return out
	}
	for _, rec := range r.records {
		if rec.el != el && el.Contains(rec.el) {
			out = append(out, rec.el)
		}
	}
	return out
}

func (r *Registry) undecorate(rec *record) {
	restoreStyle(rec.el, "outline", rec.prevOutline)
	restoreStyle(rec.el, "outline-offset", rec.prevOffset)
	if rec.badge != nil {
		rec.badge.remove()
		rec.badge = nil
	}
}

func restoreStyle(el dom.Element, prop, value string) {
	if value == "" {
		el.RemoveStyle(prop)
		return
	}
	el.SetStyle(prop, value)
}

func (r *Registry) renumber() {
	for i, rec := range r.records {
		if rec.index == i+1 {
			continue
		}
		rec.index = i + 1
		if rec.badge != nil {
			rec.badge.setText(rec.text())
		}
	}
}

func (rec *record) text() string {
	return fmt.Sprintf("(%d) %s", rec.index, rec.label)
}

// badgeLabel is "[Card.vue]" when a component file is known and "<DIV>"
// otherwise.
func badgeLabel(el dom.Element, info *component.Info) string {
	if info != nil {
		if seg := component.FileSegment(info.ComponentLocation); seg != "" {
			return "[" + seg + "]"
		}
	}
	return "<" + el.TagName() + ">"
}
