// Package session binds the targeting engine to one page and serialises
// every DOM operation onto a single goroutine.
//
// The HTTP control API, the MCP tools and live page events all arrive on
// their own goroutines; they reach the registry and the inspector only
// through Do or Post.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/hazyhaar/domtarget/component"
	"github.com/hazyhaar/domtarget/dom"
	"github.com/hazyhaar/domtarget/inspect"
	"github.com/hazyhaar/domtarget/internal/sink"
	"github.com/hazyhaar/domtarget/locator"
	"github.com/hazyhaar/domtarget/payload"
	"github.com/hazyhaar/domtarget/selection"
)

var (
	ErrClosed         = errors.New("session: closed")
	ErrNotFound       = errors.New("session: no element at locator")
	ErrIgnored        = errors.New("session: element belongs to the toolbar")
	ErrEmptySelection = errors.New("session: nothing selected")
)

// History is the read side of a payload archive.
type History interface {
	Recent(ctx context.Context, n int) ([]payload.Payload, error)
}

// Config wires a Session.
type Config struct {
	Doc dom.Document

	// Sink receives submitted payloads. Optional.
	Sink sink.Sink
	// History serves GET /v1/payloads. Optional.
	History History

	Builder    *payload.Builder
	Attributor *component.Attributor

	Palette      []string
	HoverOutline string
	// IgnoreClass marks toolbar elements and badges. Default: selection.DefaultBadgeClass.
	IgnoreClass string
	// ToolbarAttr, when set, also marks toolbar elements by attribute presence.
	ToolbarAttr string

	Logger *slog.Logger
}

// Session owns the engine state for one document.
type Session struct {
	doc    dom.Document
	reg    *selection.Registry
	insp   *inspect.Inspector
	finder component.Finder
	build  *payload.Builder
	out    sink.Sink
	hist   History
	logger *slog.Logger

	ignoreClass string
	toolbarAttr string

	work      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// New creates a Session and starts its loop.
func New(cfg Config) (*Session, error) {
	if cfg.Doc == nil {
		return nil, errors.New("session: nil document")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IgnoreClass == "" {
		cfg.IgnoreClass = selection.DefaultBadgeClass
	}
	attr := cfg.Attributor
	if attr == nil {
		attr = component.New(component.WithLogger(logger))
	}
	build := cfg.Builder
	if build == nil {
		build = payload.NewBuilder(payload.WithLogger(logger))
	}

	regOpts := []selection.Option{
		selection.WithBadgeClass(cfg.IgnoreClass),
		selection.WithLogger(logger),
	}
	if len(cfg.Palette) > 0 {
		regOpts = append(regOpts, selection.WithPalette(cfg.Palette...))
	}

	s := &Session{
		doc:         cfg.Doc,
		reg:         selection.New(regOpts...),
		finder:      attr.Finder(),
		build:       build,
		out:         cfg.Sink,
		hist:        cfg.History,
		logger:      logger,
		ignoreClass: cfg.IgnoreClass,
		toolbarAttr: cfg.ToolbarAttr,
		work:        make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		subs:        make(map[int]chan Event),
	}
	s.insp = inspect.New(inspect.Config{
		Doc:          cfg.Doc,
		ShouldIgnore: s.ignored,
		OnSelect:     s.toggle,
		IsSelected:   s.reg.HasElement,
		HoverOutline: cfg.HoverOutline,
		Logger:       logger,
	})
	go s.run()
	return s, nil
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.work:
			s.exec(fn)
		case <-s.quit:
			return
		}
	}
}

func (s *Session) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session: task panicked", "panic", r)
		}
	}()
	fn()
}

// Do runs fn on the session goroutine and waits for it to finish. ctx only
// bounds the wait for the loop to accept fn.
func (s *Session) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.work <- task:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Post queues fn without waiting for it. It matches the executor shape
// cdpdom.Document.Pump expects.
func (s *Session) Post(fn func()) {
	select {
	case s.work <- fn:
	case <-s.quit:
	}
}

// Close leaves inspection, removes every decoration and stops the loop.
// The sink is not closed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.Do(context.Background(), func() {
			s.insp.Destroy()
			s.reg.ClearAllSelections()
		})
		close(s.quit)
		<-s.done

		s.mu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()
	})
	return nil
}

// ignored reports whether el or an ancestor belongs to the toolbar.
func (s *Session) ignored(el dom.Element) bool {
	for cur := el; cur != nil; cur = cur.ParentElement() {
		if class, ok := cur.Attribute("class"); ok && slices.Contains(strings.Fields(class), s.ignoreClass) {
			return true
		}
		if s.toolbarAttr != "" {
			if _, ok := cur.Attribute(s.toolbarAttr); ok {
				return true
			}
		}
	}
	return false
}

// toggle is the click handler of inspection mode.
func (s *Session) toggle(el dom.Element) {
	if s.reg.HasElement(el) {
		idx := s.reg.Index(el)
		s.reg.DeselectElement(el)
		s.changed(Event{Type: EventDeselected, Index: idx, XPath: locator.XPath(el)})
		return
	}
	s.reg.SelectElement(el, s.finder)
	s.changed(Event{Type: EventSelected, Index: s.reg.Index(el), XPath: locator.XPath(el)})
}

// EnterInspection starts inspection mode.
func (s *Session) EnterInspection(ctx context.Context) error {
	return s.Do(ctx, func() {
		if s.insp.Active() {
			return
		}
		s.insp.Enter()
		s.changed(Event{Type: EventInspect})
	})
}

// ExitInspection leaves inspection mode. Selections stay.
func (s *Session) ExitInspection(ctx context.Context) error {
	return s.Do(ctx, func() {
		if !s.insp.Active() {
			return
		}
		s.insp.Exit()
		s.changed(Event{Type: EventInspect})
	})
}

// InInspection reports whether inspection mode is on.
func (s *Session) InInspection(ctx context.Context) (bool, error) {
	var on bool
	err := s.Do(ctx, func() { on = s.insp.Active() })
	return on, err
}

// Select selects the element at xpath and returns its index. Selecting an
// already selected element returns its current index.
func (s *Session) Select(ctx context.Context, xpath string) (int, error) {
	var (
		idx   int
		opErr error
	)
	err := s.Do(ctx, func() {
		el := locator.Resolve(s.doc, xpath)
		switch {
		case el == nil:
			opErr = ErrNotFound
		case s.ignored(el):
			opErr = ErrIgnored
		case s.reg.HasElement(el):
			idx = s.reg.Index(el)
		default:
			s.reg.SelectElement(el, s.finder)
			idx = s.reg.Index(el)
			s.changed(Event{Type: EventSelected, Index: idx, XPath: xpath})
		}
	})
	if err != nil {
		return 0, err
	}
	return idx, opErr
}

// Deselect drops the element at xpath from the selection. Deselecting an
// unselected element is a no-op.
func (s *Session) Deselect(ctx context.Context, xpath string) error {
	var opErr error
	err := s.Do(ctx, func() {
		el := locator.Resolve(s.doc, xpath)
		if el == nil {
			opErr = ErrNotFound
			return
		}
		if !s.reg.HasElement(el) {
			return
		}
		idx := s.reg.Index(el)
		s.reg.DeselectElement(el)
		s.changed(Event{Type: EventDeselected, Index: idx, XPath: xpath})
	})
	if err != nil {
		return err
	}
	return opErr
}

// Clear removes every selection.
func (s *Session) Clear(ctx context.Context) error {
	return s.Do(ctx, func() {
		if s.reg.SelectedCount() == 0 {
			return
		}
		s.reg.ClearAllSelections()
		s.changed(Event{Type: EventCleared})
	})
}

// Count returns the number of selected elements.
func (s *Session) Count(ctx context.Context) (int, error) {
	var n int
	err := s.Do(ctx, func() { n = s.reg.SelectedCount() })
	return n, err
}

// Hierarchy serialises the selection forest.
func (s *Session) Hierarchy(ctx context.Context) ([]selection.ElementData, error) {
	var roots []selection.ElementData
	err := s.Do(ctx, func() { roots = s.reg.BuildHierarchy(s.finder) })
	return roots, err
}

// Status is a snapshot of the session.
type Status struct {
	PageURL    string                  `json:"page_url"`
	Inspecting bool                    `json:"inspecting"`
	Count      int                     `json:"count"`
	Elements   []selection.ElementData `json:"elements"`
}

// Status returns the current state with the selection forest.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.Do(ctx, func() {
		st = Status{
			PageURL:    s.doc.URL(),
			Inspecting: s.insp.Active(),
			Count:      s.reg.SelectedCount(),
			Elements:   s.reg.BuildHierarchy(s.finder),
		}
	})
	return st, err
}

// Submit builds the payload for the current selection and hands it to the
// sink. The selection is kept. An empty selection builds nothing.
func (s *Session) Submit(ctx context.Context) (payload.Payload, error) {
	var (
		p     payload.Payload
		empty bool
	)
	if err := s.Do(ctx, func() {
		if s.reg.SelectedCount() == 0 {
			empty = true
			return
		}
		p = s.build.Build(s.doc, s.reg.BuildHierarchy(s.finder))
	}); err != nil {
		return payload.Payload{}, err
	}
	if empty {
		return payload.Payload{}, ErrEmptySelection
	}
	if s.out != nil {
		if err := s.out.Send(ctx, p); err != nil {
			return p, fmt.Errorf("session: submit: %w", err)
		}
	}
	s.logger.Info("session: payload submitted", "id", p.ID, "count", p.Count)
	s.emit(Event{Type: EventSubmitted, PayloadID: p.ID, Count: p.Count})
	return p, nil
}

// Locate returns the locator of el, "" when none is reliable.
func (s *Session) Locate(ctx context.Context, el dom.Element) (string, error) {
	var path string
	err := s.Do(ctx, func() { path = locator.XPath(el) })
	return path, err
}

// Component returns the nearest ownership record of el, or nil.
func (s *Session) Component(ctx context.Context, el dom.Element) (*component.Info, error) {
	var info *component.Info
	err := s.Do(ctx, func() { info = s.finder(el) })
	return info, err
}

// Recent returns archived payloads. It fails when no history is configured.
func (s *Session) Recent(ctx context.Context, n int) ([]payload.Payload, error) {
	if s.hist == nil {
		return nil, errors.New("session: no payload history configured")
	}
	return s.hist.Recent(ctx, n)
}
