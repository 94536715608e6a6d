package inspect

import (
	"strings"
	"testing"

	"github.com/hazyhaar/domtarget/dom"
	"github.com/hazyhaar/domtarget/dom/memdom"
)

type harness struct {
	doc      *memdom.Document
	in       *Inspector
	selected map[dom.Element]bool
	clicks   []dom.Element
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	doc, err := memdom.ParseString(`<html><head></head><body>
		<a id="link" href="/next">go</a>
		<div id="card">card</div>
		<div id="toolbar" class="domtarget-ignore"><button id="btn">x</button></div>
	</body></html>`, "https://example.com/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h := &harness{doc: doc, selected: make(map[dom.Element]bool)}
	h.in = New(Config{
		Doc: doc,
		ShouldIgnore: func(el dom.Element) bool {
			for cur := el; cur != nil; cur = cur.ParentElement() {
				if class, _ := cur.Attribute("class"); strings.Contains(class, "domtarget-ignore") {
					return true
				}
			}
			return false
		},
		OnSelect:   func(el dom.Element) { h.clicks = append(h.clicks, el) },
		IsSelected: func(el dom.Element) bool { return h.selected[el] },
	})
	t.Cleanup(h.in.Destroy)
	return h
}

func (h *harness) styleSheets() int {
	n := 0
	for _, el := range h.doc.ElementsByTag("style") {
		if _, ok := el.Attribute("data-domtarget-inspect"); ok {
			n++
		}
	}
	return n
}

func TestEnterExit_Idempotent(t *testing.T) {
	h := newHarness(t)
	if h.in.Active() {
		t.Fatal("new inspector must be idle")
	}

	h.in.Enter()
	h.in.Enter()
	if !h.in.Active() {
		t.Fatal("not active after Enter")
	}
	if got := h.doc.ListenerCount(); got != 7 {
		t.Errorf("listeners: got %d, want 7", got)
	}
	if got := h.styleSheets(); got != 1 {
		t.Errorf("stylesheets: got %d, want 1", got)
	}

	h.in.Exit()
	h.in.Exit()
	if h.in.Active() {
		t.Error("still active after Exit")
	}
	if got := h.doc.ListenerCount(); got != 0 {
		t.Errorf("listeners after exit: got %d, want 0", got)
	}
	if got := h.styleSheets(); got != 0 {
		t.Errorf("stylesheets after exit: got %d, want 0", got)
	}
}

func TestClick_SuppressedAndSelects(t *testing.T) {
	h := newHarness(t)
	link := h.doc.ElementByID("link")
	pageSaw := 0
	link.AddEventListener(dom.EventClick, func(dom.Event) { pageSaw++ }, false)

	h.in.Enter()
	if notPrevented := h.doc.Dispatch(dom.EventClick, link); notPrevented {
		t.Error("click default not prevented")
	}
	if pageSaw != 0 {
		t.Errorf("page listener ran %d times", pageSaw)
	}
	if len(h.clicks) != 1 || h.clicks[0] != dom.Element(link) {
		t.Errorf("OnSelect: got %v", h.clicks)
	}

	for _, typ := range []string{dom.EventMouseDown, dom.EventMouseUp, dom.EventDblClick, dom.EventContextMenu} {
		if h.doc.Dispatch(typ, link) {
			t.Errorf("%s not prevented", typ)
		}
	}
	if len(h.clicks) != 1 {
		t.Errorf("only click selects, got %d calls", len(h.clicks))
	}

	h.in.Exit()
	if !h.doc.Dispatch(dom.EventClick, link) || pageSaw != 1 {
		t.Error("page must receive clicks once idle")
	}
}

func TestIgnoredElements_PassThrough(t *testing.T) {
	h := newHarness(t)
	btn := h.doc.ElementByID("btn")
	pressed := 0
	btn.AddEventListener(dom.EventClick, func(dom.Event) { pressed++ }, false)

	h.in.Enter()
	if !h.doc.Dispatch(dom.EventClick, btn) {
		t.Error("toolbar click was prevented")
	}
	h.doc.Dispatch(dom.EventMouseOver, btn)
	if pressed != 1 || len(h.clicks) != 0 {
		t.Errorf("pressed=%d clicks=%d", pressed, len(h.clicks))
	}
	if btn.Style("outline") != "" {
		t.Error("ignored element was highlighted")
	}
}

func TestHover_HighlightsAndClears(t *testing.T) {
	h := newHarness(t)
	link, card := h.doc.ElementByID("link"), h.doc.ElementByID("card")
	h.in.Enter()

	h.doc.Dispatch(dom.EventMouseOver, link)
	if got := link.Style("outline"); got != DefaultHoverOutline {
		t.Errorf("hover outline: got %q", got)
	}

	h.doc.Dispatch(dom.EventMouseOver, card)
	if link.Style("outline") != "" {
		t.Error("previous hover not cleared")
	}
	h.doc.Dispatch(dom.EventMouseOut, card)
	if card.Style("outline") != "" {
		t.Error("mouseout did not clear unselected element")
	}

	h.doc.Dispatch(dom.EventMouseOver, link)
	h.in.Exit()
	if link.Style("outline") != "" {
		t.Error("exit did not clear hover highlight")
	}
}

func TestHover_RestoresPageOutline(t *testing.T) {
	h := newHarness(t)
	card := h.doc.ElementByID("card")
	card.SetStyle("outline", "1px dotted green")
	h.in.Enter()

	h.doc.Dispatch(dom.EventMouseOver, card)
	if got := card.Style("outline"); got != DefaultHoverOutline {
		t.Fatalf("hover outline: got %q", got)
	}
	h.doc.Dispatch(dom.EventMouseOut, card)
	if got := card.Style("outline"); got != "1px dotted green" {
		t.Errorf("after mouseout: got %q, want %q", got, "1px dotted green")
	}
}

func TestClick_SelectSeesPageOutline(t *testing.T) {
	h := newHarness(t)
	card := h.doc.ElementByID("card")
	card.SetStyle("outline", "1px dotted green")
	var seen string
	h.in.cfg.OnSelect = func(el dom.Element) { seen = el.Style("outline") }
	h.in.Enter()

	h.doc.Dispatch(dom.EventMouseOver, card)
	h.doc.Dispatch(dom.EventClick, card)
	if seen != "1px dotted green" {
		t.Errorf("OnSelect saw outline %q", seen)
	}
	if got := card.Style("outline"); got != DefaultHoverOutline {
		t.Errorf("unselected element should stay highlighted, got %q", got)
	}
}

func TestHover_SelectionTakesPrecedence(t *testing.T) {
	h := newHarness(t)
	card := h.doc.ElementByID("card")
	card.SetStyle("outline", "3px solid #ef4444")
	h.selected[card] = true
	h.in.Enter()

	h.doc.Dispatch(dom.EventMouseOver, card)
	if got := card.Style("outline"); got != "3px solid #ef4444" {
		t.Errorf("hover replaced selection outline: %q", got)
	}
	h.doc.Dispatch(dom.EventMouseOut, card)
	if got := card.Style("outline"); got != "3px solid #ef4444" {
		t.Errorf("mouseout cleared selection outline: %q", got)
	}

	h.doc.Dispatch(dom.EventMouseOver, card)
	h.doc.Dispatch(dom.EventMouseOver, h.doc.ElementByID("link"))
	if got := card.Style("outline"); got != "3px solid #ef4444" {
		t.Errorf("moving on cleared selection outline: %q", got)
	}
}

func TestDestroy_FromAnyState(t *testing.T) {
	h := newHarness(t)
	h.in.Destroy()
	h.in.Enter()
	h.in.Destroy()
	if h.in.Active() || h.doc.ListenerCount() != 0 {
		t.Error("destroy left inspector active")
	}
	h.in.Enter()
	if !h.in.Active() {
		t.Error("inspector must be re-enterable after destroy")
	}
}
