package memdom

import (
	"strings"
	"testing"

	"github.com/hazyhaar/domtarget/dom"
)

func TestParse_Structure(t *testing.T) {
	doc, err := ParseString(`<p id="x" class="a">hi <b>there</b><!-- c --></p>`, "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Head() == nil || doc.Body() == nil {
		t.Fatal("parser must synthesise head and body")
	}
	p := doc.ElementByID("x")
	if p == nil {
		t.Fatal("p not found")
	}
	if p.TagName() != "P" {
		t.Errorf("tag: got %q", p.TagName())
	}
	if p.ParentElement() != doc.Body() {
		t.Error("p should be a body child")
	}
	if got := p.TextContent(); got != "hi there" {
		t.Errorf("text: got %q", got)
	}
	if got := len(p.Children()); got != 1 {
		t.Errorf("children: got %d", got)
	}
	if !doc.Body().Contains(p) || !p.Contains(p) || p.Contains(doc.Body()) {
		t.Error("Contains is wrong")
	}
	if doc.DocumentElement().ParentElement() != nil {
		t.Error("html must have no parent element")
	}
	if got := doc.CountID("x"); got != 1 {
		t.Errorf("CountID: got %d", got)
	}
	if got := p.OuterHTML(); got != `<p id="x" class="a">hi <b>there</b><!-- c --></p>` {
		t.Errorf("OuterHTML: got %q", got)
	}
}

func TestStyle_InlineDeclarations(t *testing.T) {
	doc := New("")
	el := doc.Body().(*Element).Append("div", "style", "color: red")

	el.SetStyle("outline", "3px solid blue")
	el.SetStyle("Color", "green")
	if got, _ := el.Attribute("style"); got != "color: green; outline: 3px solid blue;" {
		t.Errorf("style attr: got %q", got)
	}
	el.RemoveStyle("outline")
	if el.Style("outline") != "" || el.Style("color") != "green" {
		t.Errorf("after remove: %q", el.OuterHTML())
	}
	el.SetStyle("color", "")
	if el.Style("color") != "" {
		t.Error("empty value must remove")
	}
}

func TestStyle_ValuesWithSemicolons(t *testing.T) {
	doc := New("")
	bg := "url('data:image/png;base64,AAAA')"
	el := doc.Body().(*Element).Append("div", "style", "background-image: "+bg+"; color: red")

	el.SetStyle("outline", "3px solid blue")
	el.RemoveStyle("outline")
	if got := el.Style("background-image"); got != bg {
		t.Errorf("background-image: got %q, want %q", got, bg)
	}
	if got, _ := el.Attribute("style"); got != "background-image: "+bg+"; color: red;" {
		t.Errorf("style attr: got %q", got)
	}
}

func TestStyle_ImportantKept(t *testing.T) {
	doc := New("")
	el := doc.Body().(*Element).Append("div", "style", "color: red !important")
	el.SetStyle("outline", "1px solid")
	if got, _ := el.Attribute("style"); got != "color: red !important; outline: 1px solid;" {
		t.Errorf("style attr: got %q", got)
	}
}

func TestTree_Mutation(t *testing.T) {
	doc := New("")
	body := doc.Body().(*Element)
	div := body.Append("div")
	span := div.Append("span")

	if _, ok := span.BoundingRect(); !ok {
		t.Error("connected element must report a box")
	}
	span.SetRect(dom.Rect{X: 1, Y: 2, Width: 3, Height: 4})
	if r, _ := span.BoundingRect(); r.Width != 3 {
		t.Errorf("rect: %+v", r)
	}

	div.Remove()
	if span.Connected() {
		t.Error("span still connected")
	}
	if _, ok := span.BoundingRect(); ok {
		t.Error("detached element must not report a box")
	}
	if div.ParentElement() != nil {
		t.Error("removed element keeps a parent")
	}

	// Appending an ancestor into its descendant is refused.
	span.AppendChild(div)
	if div.ParentElement() != nil {
		t.Error("cycle created")
	}

	div.SetTextContent("plain")
	if span.ParentElement() != nil || div.TextContent() != "plain" {
		t.Error("SetTextContent must replace children")
	}
}

func TestProperties_KeepInsertionOrder(t *testing.T) {
	el := New("").CreateElement("div").(*Element)
	el.SetProperty("__reactFiber$b", 1)
	el.SetProperty("__vue__", 2)
	el.SetProperty("__reactFiber$b", 3)
	if got := strings.Join(el.PropertyNames(), ","); got != "__reactFiber$b,__vue__" {
		t.Errorf("names: got %q", got)
	}
	if v, ok := el.Property("__reactFiber$b"); !ok || v != 3 {
		t.Errorf("value: got %v", v)
	}
}

func TestDispatch_Phases(t *testing.T) {
	doc, err := ParseString(`<html><body><div id="outer"><span id="inner"></span></div></body></html>`, "")
	if err != nil {
		t.Fatal(err)
	}
	outer, inner := doc.ElementByID("outer"), doc.ElementByID("inner")

	var order []string
	rec := func(name string) dom.Listener {
		return func(dom.Event) { order = append(order, name) }
	}
	doc.AddEventListener("click", rec("doc-capture"), true)
	doc.AddEventListener("click", rec("doc-bubble"), false)
	outer.AddEventListener("click", rec("outer-capture"), true)
	outer.AddEventListener("click", rec("outer-bubble"), false)
	inner.AddEventListener("click", rec("inner"), false)
	doc.AddEventListener("mouseover", rec("other-type"), true)

	if !doc.Dispatch("click", inner) {
		t.Error("Dispatch reported prevented")
	}
	want := "doc-capture,outer-capture,inner,outer-bubble,doc-bubble"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order: got %q, want %q", got, want)
	}
}

func TestDispatch_StopAndPrevent(t *testing.T) {
	doc, err := ParseString(`<html><body><a id="a"></a></body></html>`, "")
	if err != nil {
		t.Fatal(err)
	}
	a := doc.ElementByID("a")
	calls := 0
	remove := doc.AddEventListener("click", func(ev dom.Event) {
		ev.PreventDefault()
		ev.StopImmediatePropagation()
	}, true)
	doc.AddEventListener("click", func(dom.Event) { calls++ }, true)
	a.AddEventListener("click", func(dom.Event) { calls++ }, false)

	if doc.Dispatch("click", a) {
		t.Error("prevented click reported as not prevented")
	}
	if calls != 0 {
		t.Errorf("listeners after stopImmediatePropagation ran %d times", calls)
	}

	remove()
	remove()
	if got := doc.ListenerCount(); got != 1 {
		t.Errorf("listeners: got %d, want 1", got)
	}
	doc.Dispatch("click", a)
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestDispatch_DetachedSkipsDocument(t *testing.T) {
	doc := New("")
	el := doc.CreateElement("div").(*Element)
	docCalls, elCalls := 0, 0
	doc.AddEventListener("click", func(dom.Event) { docCalls++ }, true)
	el.AddEventListener("click", func(dom.Event) { elCalls++ }, false)
	doc.Dispatch("click", el)
	if docCalls != 0 || elCalls != 1 {
		t.Errorf("doc=%d el=%d", docCalls, elCalls)
	}
}
