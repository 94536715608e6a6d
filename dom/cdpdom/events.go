package cdpdom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domtarget/dom"
)

type listener struct {
	typ     string
	fn      dom.Listener
	removed bool
}

func (d *Document) AddEventListener(typ string, fn dom.Listener, _ bool) func() {
	l := &listener{typ: typ, fn: fn}

	d.mu.Lock()
	first := !d.listening(typ)
	d.listeners = append(d.listeners, l)
	bridged := d.bridged
	d.mu.Unlock()

	if first && bridged {
		d.setListening(typ, true)
	}

	return func() {
		d.mu.Lock()
		if l.removed {
			d.mu.Unlock()
			return
		}
		l.removed = true
		for i, cur := range d.listeners {
			if cur == l {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				break
			}
		}
		last := !d.listening(typ)
		bridged := d.bridged
		d.mu.Unlock()
		if last && bridged {
			d.setListening(typ, false)
		}
	}
}

// listening reports whether any listener for typ remains. Callers hold mu.
func (d *Document) listening(typ string) bool {
	for _, l := range d.listeners {
		if l.typ == typ {
			return true
		}
	}
	return false
}

func (d *Document) setListening(typ string, on bool) {
	js := `(t) => window.__domtargetBridge && window.__domtargetBridge.unlisten(t)`
	if on {
		js = `(t) => window.__domtargetBridge && window.__domtargetBridge.listen(t)`
	}
	if _, err := d.page.Eval(js, typ); err != nil {
		d.rpcFailed("listen "+typ, err)
	}
}

type bridgeMessage struct {
	Type   string `json:"type"`
	Target int    `json:"target"`
}

// Pump installs the bridge and forwards page events to the Go listeners
// until ctx is done. Listeners run inside submit, which lets the caller
// serialise them with the rest of its DOM work.
func (d *Document) Pump(ctx context.Context, submit func(func())) error {
	if err := d.InstallBridge(ctx); err != nil {
		return err
	}
	wait := d.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var msg bridgeMessage
		if err := json.Unmarshal([]byte(e.Payload), &msg); err != nil {
			d.logger.Warn("cdpdom: bad bridge payload", "error", err)
			return
		}
		submit(func() { d.deliver(msg) })
	}, func(e *proto.PageFrameNavigated) {
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		// A new document: old node ids are dead and the bridge is gone.
		submit(func() {
			d.Forget()
			if err := d.InstallBridge(ctx); err != nil {
				d.logger.Warn("cdpdom: reinstall bridge", "url", e.Frame.URL, "error", err)
			}
		})
	})
	wait()
	if err := ctx.Err(); err != nil && err != context.Canceled {
		return fmt.Errorf("cdpdom: pump: %w", err)
	}
	return nil
}

func (d *Document) deliver(msg bridgeMessage) {
	ev := &Event{typ: msg.Type}
	if msg.Target > 0 {
		el, err := d.page.Sleeper(rod.NotFoundSleeper).ElementByJS(
			rod.Eval(`(id) => window.__domtargetBridge.take(id)`, msg.Target))
		if err != nil {
			if !isNotFound(err) {
				d.rpcFailed("event target", err)
			}
		} else if w := d.wrap(el); w != nil {
			ev.target = w
		}
	}

	d.mu.Lock()
	snapshot := make([]*listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		if l.typ == msg.Type {
			snapshot = append(snapshot, l)
		}
	}
	d.mu.Unlock()

	for _, l := range snapshot {
		if l.removed {
			continue
		}
		l.fn(ev)
		if ev.immediate {
			return
		}
	}
}

// Event is a page event replayed in Go. Interaction events were already
// suppressed in the page; PreventDefault here only records the call.
type Event struct {
	typ       string
	target    dom.Element
	prevented bool
	immediate bool
}

func (ev *Event) Type() string { return ev.typ }
func (ev *Event) Target() dom.Element { return ev.target }
func (ev *Event) PreventDefault() { ev.prevented = true }
func (ev *Event) StopPropagation() {}
func (ev *Event) StopImmediatePropagation() { ev.immediate = true }
func (ev *Event) DefaultPrevented() bool { return ev.prevented }
