// Package component attributes a DOM element to the UI-framework component
// that rendered it.
//
// Rendering frameworks leave bookkeeping on the DOM nodes they own (Vue
// component instances and vnodes, React fibers). An Attributor tries an
// ordered list of Detectors at the element and, when none matches, at each
// ancestor up to the document body. The first match wins; nothing is cached
// because framework internals change across re-renders.
package component

import (
	"log/slog"
	"strings"

	"github.com/hazyhaar/domtarget/dom"
)

// Framework names the rendering technology a component was found through.
type Framework string

const (
	FrameworkVue     Framework = "vue"
	FrameworkReact   Framework = "react"
	FrameworkVanilla Framework = "vanilla"
)

// SourceLocation points into the component source.
type SourceLocation struct {
	File      string `json:"file"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
	EndColumn int    `json:"endColumn,omitempty"`
}

// Info is the reduced ownership record for an element.
type Info struct {
	ComponentLocation string          `json:"componentLocation"`
	ComponentName     string          `json:"componentName,omitempty"`
	Framework         Framework       `json:"framework,omitempty"`
	ElementLocation   *SourceLocation `json:"elementLocation,omitempty"`
	SourceHierarchy   string          `json:"sourceHierarchy,omitempty"`
}

// Detector is one detection strategy. Detect returns nil, nil when the
// element carries nothing it recognises.
type Detector interface {
	Name() string
	Detect(el dom.Element) (*Info, error)
}

// Finder is the shape consumers need: element in, ownership record or nil out.
type Finder func(el dom.Element) *Info

// Attributor runs detectors in priority order.
type Attributor struct {
	detectors []Detector
	logger    *slog.Logger
}

// Option configures an Attributor.
type Option func(*Attributor)

// WithLogger sets the sink for detection faults.
func WithLogger(l *slog.Logger) Option {
	return func(a *Attributor) { a.logger = l }
}

// WithDetectors replaces the default detector list.
func WithDetectors(ds ...Detector) Option {
	return func(a *Attributor) { a.detectors = ds }
}

// DefaultDetectors returns the built-in strategies in priority order:
// Vue runtime fields, React fibers, then data-component-* attributes.
func DefaultDetectors() []Detector {
	return []Detector{VueDetector{}, FiberDetector{}, AttributeDetector{}}
}

// New creates an Attributor with the default detectors.
func New(opts ...Option) *Attributor {
	a := &Attributor{
		detectors: DefaultDetectors(),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// FindNearest returns the component owning el or its nearest attributable
// ancestor below the document body. It returns nil when nothing is found.
func (a *Attributor) FindNearest(el dom.Element) *Info {
	for cur := el; cur != nil; cur = cur.ParentElement() {
		if dom.IsBody(cur) {
			return nil
		}
		if info := a.detectAt(cur); info != nil {
			return info
		}
	}
	return nil
}

// Finder returns FindNearest as a Finder.
func (a *Attributor) Finder() Finder {
	return a.FindNearest
}

// detectAt tries every detector on a single element. Faults are logged and
// make this element count as unattributed; the caller keeps ascending.
func (a *Attributor) detectAt(el dom.Element) (info *Info) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("component: detector panicked", "tag", el.TagName(), "panic", r)
			info = nil
		}
	}()

	for _, d := range a.detectors {
		got, err := d.Detect(el)
		if err != nil {
			a.logger.Warn("component: detection failed",
				"detector", d.Name(), "tag", el.TagName(), "error", err)
			return nil
		}
		if got != nil {
			return got
		}
	}
	return nil
}

// FileSegment extracts a short file name from a component location for
// display: the "@name" suffix is dropped and the last path segment kept,
// with either separator. Locations without a file part yield "".
func FileSegment(location string) string {
	file := location
	// An "@" followed by a separator belongs to the path (scoped packages).
	if i := strings.LastIndex(file, "@"); i >= 0 && !strings.ContainsAny(file[i+1:], `/\`) {
		file = file[:i]
	}
	if i := strings.LastIndexAny(file, `/\`); i >= 0 {
		file = file[i+1:]
	}
	return file
}
