// Package cdpdom implements dom.Document over a live Chrome tab.
//
// Each dom call is a CDP round-trip through rod. The dom interfaces are
// infallible, so RPC errors are logged at debug level and surface as zero
// values (nil element, empty string, false). Element wrappers are cached by
// backend node id: the same page node always yields the same dom.Element,
// which is what selection membership keys on.
//
// Page events reach Go through a Runtime binding (bridge.js). Because
// preventDefault must run synchronously in the page, interaction events are
// swallowed page-side while Go listens for them; the Go listeners then see
// them after the fact through Pump.
package cdpdom

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domtarget/dom"
)

//go:embed bridge.js
var bridgeJS string

//go:embed internals.js
var internalsJS string

const bindingName = "__domtargetEmit"

// interactionEvents are swallowed in the page while listened to.
var interactionEvents = []string{
	dom.EventClick,
	dom.EventMouseDown,
	dom.EventMouseUp,
	dom.EventDblClick,
	dom.EventContextMenu,
}

// Document is a live page.
type Document struct {
	page   *rod.Page
	ignore string
	logger *slog.Logger

	mu        sync.Mutex
	elements  map[proto.DOMBackendNodeID]*Element
	listeners []*listener
	bridged   bool
}

// Option configures a Document.
type Option func(*Document)

// WithIgnoreSelector sets the CSS selector whose matches (and their
// descendants) keep their native interaction during inspection.
func WithIgnoreSelector(sel string) Option {
	return func(d *Document) { d.ignore = sel }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// New wraps a page.
func New(page *rod.Page, opts ...Option) *Document {
	d := &Document{
		page:     page,
		logger:   slog.Default(),
		elements: make(map[proto.DOMBackendNodeID]*Element),
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Page returns the underlying rod page.
func (d *Document) Page() *rod.Page { return d.page }

func (d *Document) URL() string {
	res, err := d.page.Eval(`() => location.href`)
	if err != nil {
		d.rpcFailed("url", err)
		return ""
	}
	return res.Value.Str()
}

func (d *Document) DocumentElement() dom.Element {
	return d.byJS("documentElement", `() => document.documentElement`)
}

func (d *Document) Head() dom.Element {
	return d.byJS("head", `() => document.head`)
}

func (d *Document) Body() dom.Element {
	return d.byJS("body", `() => document.body`)
}

func (d *Document) CountID(id string) int {
	res, err := d.page.Eval(`(id) => {
		let n = 0;
		for (const el of document.querySelectorAll('[id]')) if (el.id === id) n++;
		return n;
	}`, id)
	if err != nil {
		d.rpcFailed("count id", err)
		return 0
	}
	return res.Value.Int()
}

func (d *Document) CreateElement(tag string) dom.Element {
	return d.byJS("create element", `(tag) => document.createElement(tag)`, tag)
}

func (d *Document) byJS(op, js string, args ...any) dom.Element {
	el, err := d.page.Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(js, args...))
	if err != nil {
		if !isNotFound(err) {
			d.rpcFailed(op, err)
		}
		return nil
	}
	return d.wrap(el)
}

// wrap returns the cached wrapper for the node behind el.
func (d *Document) wrap(el *rod.Element) dom.Element {
	if el == nil {
		return nil
	}
	node, err := el.Describe(0, false)
	if err != nil {
		d.rpcFailed("describe", err)
		return nil
	}
	if node.NodeType != 1 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.elements[node.BackendNodeID]; ok {
		return w
	}
	tag := node.LocalName
	if tag == "" {
		tag = node.NodeName
	}
	w := &Element{doc: d, el: el, id: node.BackendNodeID, tag: strings.ToUpper(tag)}
	d.elements[node.BackendNodeID] = w
	return w
}

func (d *Document) wrapAll(els rod.Elements) []dom.Element {
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		if w := d.wrap(el); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Forget drops all cached wrappers, e.g. after a navigation replaced the
// document.
func (d *Document) Forget() {
	d.mu.Lock()
	d.elements = make(map[proto.DOMBackendNodeID]*Element)
	d.bridged = false
	d.mu.Unlock()
}

func (d *Document) rpcFailed(op string, err error) {
	d.logger.Debug("cdpdom: rpc failed", "op", op, "error", err)
}

func isNotFound(err error) bool {
	var nf *rod.ElementNotFoundError
	return errors.As(err, &nf)
}

// InstallBridge registers the event binding and injects the bridge. It is
// called by Pump; it is exported for callers that drive events themselves.
func (d *Document) InstallBridge(ctx context.Context) error {
	d.mu.Lock()
	done := d.bridged
	d.mu.Unlock()
	if done {
		return nil
	}

	page := d.page.Context(ctx)
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return fmt.Errorf("cdpdom: add binding: %w", err)
	}
	if _, err := page.Eval(bridgeJS, bindingName, d.ignore, interactionEvents); err != nil {
		return fmt.Errorf("cdpdom: inject bridge: %w", err)
	}

	d.mu.Lock()
	d.bridged = true
	types := make(map[string]bool)
	for _, l := range d.listeners {
		types[l.typ] = true
	}
	d.mu.Unlock()
	for typ := range types {
		d.setListening(typ, true)
	}
	return nil
}
