// Package inspect turns pointer events into hover highlighting and selection
// callbacks while keeping them away from the page.
//
// An Inspector has two states. Entering inspection acquires a subscription
// bundle (a crosshair stylesheet plus capture listeners on the document);
// leaving releases the whole bundle through one disposer.
package inspect

import (
	"log/slog"

	"github.com/hazyhaar/domtarget/dom"
)

// DefaultHoverOutline is the temporary outline on the hovered element.
const DefaultHoverOutline = "2px dashed #3b82f6"

const cursorCSS = "* { cursor: crosshair !important; }"

// suppressed lists the interaction events swallowed while inspecting.
var suppressed = []string{
	dom.EventClick,
	dom.EventMouseDown,
	dom.EventMouseUp,
	dom.EventDblClick,
	dom.EventContextMenu,
}

// Config wires the Inspector to its collaborators.
type Config struct {
	Doc dom.Document

	// ShouldIgnore protects the toolbar's own controls. Optional.
	ShouldIgnore func(el dom.Element) bool
	// OnSelect receives click targets. Optional.
	OnSelect func(el dom.Element)
	// IsSelected decides hover-outline precedence. Optional.
	IsSelected func(el dom.Element) bool

	HoverOutline string
	Logger       *slog.Logger
}

// Inspector is the idle/inspecting state machine.
type Inspector struct {
	cfg     Config
	release func()
	hovered dom.Element
	// prevOutline is the inline outline hovered had before highlighting.
	prevOutline string
}

// New creates an idle Inspector.
func New(cfg Config) *Inspector {
	if cfg.HoverOutline == "" {
		cfg.HoverOutline = DefaultHoverOutline
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Inspector{cfg: cfg}
}

// Active reports whether the Inspector is inspecting.
func (in *Inspector) Active() bool { return in.release != nil }

// Enter switches to inspecting. It is a no-op when already inspecting.
func (in *Inspector) Enter() {
	if in.release != nil || in.cfg.Doc == nil {
		return
	}
	doc := in.cfg.Doc

	var disposers []func()
	if head := doc.Head(); head != nil {
		sheet := doc.CreateElement("style")
		sheet.SetAttribute("data-domtarget-inspect", "")
		sheet.SetTextContent(cursorCSS)
		head.AppendChild(sheet)
		disposers = append(disposers, sheet.Remove)
	}

	listen := func(typ string, fn dom.Listener) {
		disposers = append(disposers, doc.AddEventListener(typ, fn, true))
	}
	listen(dom.EventMouseOver, in.onMouseOver)
	listen(dom.EventMouseOut, in.onMouseOut)
	for _, typ := range suppressed {
		listen(typ, in.onInteraction)
	}

	in.release = func() {
		for i := len(disposers) - 1; i >= 0; i-- {
			disposers[i]()
		}
	}
	in.cfg.Logger.Debug("inspect: entered", "url", doc.URL())
}

// Exit switches to idle, releasing every listener and the stylesheet and
// clearing the hover highlight. It is a no-op when idle.
func (in *Inspector) Exit() {
	if in.release == nil {
		return
	}
	in.release()
	in.release = nil
	in.clearHover()
	in.cfg.Logger.Debug("inspect: exited")
}

// Destroy forces the idle state for teardown.
func (in *Inspector) Destroy() {
	in.Exit()
	in.hovered = nil
}

func (in *Inspector) ignored(el dom.Element) bool {
	if el == nil {
		return true
	}
	return in.cfg.ShouldIgnore != nil && in.cfg.ShouldIgnore(el)
}

func (in *Inspector) selected(el dom.Element) bool {
	return in.cfg.IsSelected != nil && in.cfg.IsSelected(el)
}

func (in *Inspector) onMouseOver(ev dom.Event) {
	target := ev.Target()
	if in.ignored(target) {
		return
	}
	in.clearHover()
	if !in.selected(target) {
		in.highlight(target)
	}
}

func (in *Inspector) onMouseOut(ev dom.Event) {
	target := ev.Target()
	if in.ignored(target) {
		return
	}
	if in.hovered == target {
		in.clearHover()
	}
}

func (in *Inspector) onInteraction(ev dom.Event) {
	target := ev.Target()
	if in.ignored(target) {
		return
	}
	ev.PreventDefault()
	ev.StopPropagation()
	ev.StopImmediatePropagation()
	if ev.Type() != dom.EventClick || in.cfg.OnSelect == nil {
		return
	}
	// The registry must see the page's own outline, not the highlight.
	wasHovered := in.hovered == target
	if wasHovered {
		in.clearHover()
	}
	in.cfg.OnSelect(target)
	if wasHovered && !in.selected(target) {
		in.highlight(target)
	}
}

func (in *Inspector) highlight(el dom.Element) {
	in.prevOutline = el.Style("outline")
	el.SetStyle("outline", in.cfg.HoverOutline)
	in.hovered = el
}

// clearHover restores the hovered element's outline unless it became
// selected.
func (in *Inspector) clearHover() {
	prev := in.hovered
	in.hovered = nil
	if prev == nil || in.selected(prev) {
		return
	}
	if in.prevOutline == "" {
		prev.RemoveStyle("outline")
	} else {
		prev.SetStyle("outline", in.prevOutline)
	}
	in.prevOutline = ""
}
