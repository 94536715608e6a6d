package memdom

import "github.com/hazyhaar/domtarget/dom"

type listener struct {
	typ     string
	fn      dom.Listener
	capture bool
	removed bool
}

func addListener(list *[]*listener, typ string, fn dom.Listener, capture bool) func() {
	l := &listener{typ: typ, fn: fn, capture: capture}
	*list = append(*list, l)
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		for i, cur := range *list {
			if cur == l {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// Event is a dispatched memdom event.
type Event struct {
	typ       string
	target    *Element
	prevented bool
	stopped   bool
	immediate bool
}

func (ev *Event) Type() string { return ev.typ }

func (ev *Event) Target() dom.Element {
	if ev.target == nil {
		return nil
	}
	return ev.target
}

func (ev *Event) PreventDefault() { ev.prevented = true }
func (ev *Event) StopPropagation() { ev.stopped = true }
func (ev *Event) StopImmediatePropagation() { ev.stopped, ev.immediate = true, true }
func (ev *Event) DefaultPrevented() bool { return ev.prevented }

// phase selects which listeners fire on a node.
type phase int

const (
	phaseCapture phase = iota
	phaseTarget
	phaseBubble
)

func (ev *Event) invoke(list []*listener, p phase) {
	// Listeners added during dispatch do not fire; removed ones do not either.
	snapshot := make([]*listener, len(list))
	copy(snapshot, list)
	for _, l := range snapshot {
		if l.removed || l.typ != ev.typ {
			continue
		}
		if p == phaseCapture && !l.capture || p == phaseBubble && l.capture {
			continue
		}
		l.fn(ev)
		if ev.immediate {
			return
		}
	}
}

// Dispatch fires an event at target through the capture, target and bubble
// phases. The document participates only when target is connected. It
// returns false when a listener called PreventDefault, like dispatchEvent.
func (d *Document) Dispatch(typ string, target *Element) bool {
	ev := &Event{typ: typ, target: target}

	var path []*Element // root-most first, target excluded
	for p := target.parent; p != nil; p = p.parent {
		path = append([]*Element{p}, path...)
	}
	withDoc := target.Connected()

	if withDoc {
		ev.invoke(d.listeners, phaseCapture)
	}
	for _, el := range path {
		if ev.stopped {
			return !ev.prevented
		}
		ev.invoke(el.listeners, phaseCapture)
	}
	if ev.stopped {
		return !ev.prevented
	}
	ev.invoke(target.listeners, phaseTarget)
	for i := len(path) - 1; i >= 0; i-- {
		if ev.stopped {
			return !ev.prevented
		}
		ev.invoke(path[i].listeners, phaseBubble)
	}
	if withDoc && !ev.stopped {
		ev.invoke(d.listeners, phaseBubble)
	}
	return !ev.prevented
}

// DispatchWindow fires a target-less event (scroll, resize) at the document
// listeners in registration order.
func (d *Document) DispatchWindow(typ string) {
	ev := &Event{typ: typ}
	ev.invoke(d.listeners, phaseTarget)
}
