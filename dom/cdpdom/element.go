package cdpdom

import (
	"encoding/json"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domtarget/dom"
)

// Element is a live page element.
type Element struct {
	doc *Document
	el  *rod.Element
	id  proto.DOMBackendNodeID
	tag string
}

// Rod returns the underlying rod element.
func (e *Element) Rod() *rod.Element { return e.el }

func (e *Element) eval(op, js string, args ...any) (*proto.RuntimeRemoteObject, bool) {
	res, err := e.el.Eval(js, args...)
	if err != nil {
		e.doc.rpcFailed(op, err)
		return nil, false
	}
	return res, true
}

func (e *Element) TagName() string { return e.tag }

func (e *Element) Attribute(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil {
		e.doc.rpcFailed("attribute", err)
		return "", false
	}
	if v == nil {
		return "", false
	}
	return *v, true
}

func (e *Element) Attributes() []dom.Attribute {
	res, ok := e.eval("attributes", `() => Array.from(this.attributes, a => [a.name, a.value])`)
	if !ok {
		return nil
	}
	var pairs [][2]string
	if err := decodeValue(res, &pairs); err != nil {
		e.doc.rpcFailed("attributes", err)
		return nil
	}
	out := make([]dom.Attribute, len(pairs))
	for i, p := range pairs {
		out[i] = dom.Attribute{Name: p[0], Value: p[1]}
	}
	return out
}

func (e *Element) SetAttribute(name, value string) {
	e.eval("set attribute", `(n, v) => this.setAttribute(n, v)`, name, value)
}

func (e *Element) ParentElement() dom.Element {
	return e.related("parent", `() => this.parentElement`)
}

func (e *Element) Children() []dom.Element {
	els, err := e.el.ElementsByJS(rod.Eval(`() => Array.from(this.children)`))
	if err != nil {
		e.doc.rpcFailed("children", err)
		return nil
	}
	return e.doc.wrapAll(els)
}

func (e *Element) related(op, js string) dom.Element {
	el, err := e.el.Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(js))
	if err != nil {
		if !isNotFound(err) {
			e.doc.rpcFailed(op, err)
		}
		return nil
	}
	return e.doc.wrap(el)
}

func (e *Element) Contains(other dom.Element) bool {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false
	}
	if o.id == e.id {
		return true
	}
	res, ok := e.eval("contains", `(o) => this.contains(o)`, o.el.Object)
	return ok && res.Value.Bool()
}

func (e *Element) TextContent() string {
	res, ok := e.eval("text", `() => this.textContent || ''`)
	if !ok {
		return ""
	}
	return res.Value.Str()
}

func (e *Element) SetTextContent(text string) {
	e.eval("set text", `(t) => { this.textContent = t; }`, text)
}

func (e *Element) OuterHTML() string {
	html, err := e.el.HTML()
	if err != nil {
		e.doc.rpcFailed("outer html", err)
		return ""
	}
	return html
}

func (e *Element) BoundingRect() (dom.Rect, bool) {
	res, ok := e.eval("rect", `() => {
		if (!this.isConnected) return null;
		const r = this.getBoundingClientRect();
		return { x: r.x, y: r.y, width: r.width, height: r.height };
	}`)
	if !ok || res.Value.Nil() {
		return dom.Rect{}, false
	}
	var box struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := decodeValue(res, &box); err != nil {
		e.doc.rpcFailed("rect", err)
		return dom.Rect{}, false
	}
	r := dom.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}
	return r, true
}

func (e *Element) Style(prop string) string {
	res, ok := e.eval("style", `(p) => this.style.getPropertyValue(p)`, prop)
	if !ok {
		return ""
	}
	return res.Value.Str()
}

func (e *Element) SetStyle(prop, value string) {
	e.eval("set style", `(p, v) => this.style.setProperty(p, v)`, prop, value)
}

func (e *Element) RemoveStyle(prop string) {
	e.eval("remove style", `(p) => this.style.removeProperty(p)`, prop)
}

func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok || c == nil {
		return
	}
	e.eval("append", `(c) => { this.appendChild(c); }`, c.el.Object)
}

// Remove detaches the node but keeps the remote handle alive, so the
// wrapper stays usable if the node is reinserted.
func (e *Element) Remove() {
	e.eval("remove", `() => this.remove()`)
}

// Property reads a runtime-internal field through internals.js.
func (e *Element) Property(name string) (any, bool) {
	res, ok := e.eval("property", internalsJS, name)
	if !ok || res.Value.Nil() {
		return nil, false
	}
	var raw any
	if err := decodeValue(res, &raw); err != nil {
		e.doc.rpcFailed("property", err)
		return nil, false
	}
	v := decodeInternal(raw)
	return v, v != nil
}

func (e *Element) PropertyNames() []string {
	res, ok := e.eval("property names", `() => Object.keys(this)`)
	if !ok {
		return nil
	}
	var names []string
	if err := decodeValue(res, &names); err != nil {
		e.doc.rpcFailed("property names", err)
		return nil
	}
	return names
}

func (e *Element) OwnerDocument() dom.Document { return e.doc }

func decodeValue(res *proto.RuntimeRemoteObject, into any) error {
	data, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}

// decodeInternal turns the internals.js encoding into dom values:
// {"$fn": name, "props": {...}} becomes *dom.Func.
func decodeInternal(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if name, ok := t["$fn"].(string); ok {
			fn := &dom.Func{Name: name}
			if props, ok := decodeInternal(t["props"]).(map[string]any); ok {
				fn.Props = props
			}
			return fn
		}
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = decodeInternal(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = decodeInternal(x)
		}
		return out
	default:
		return v
	}
}
