package component

import (
	"strings"

	"github.com/hazyhaar/domtarget/dom"
)

// fiberKeyPrefixes match the per-root randomised keys React uses to link a
// DOM node to its fiber (React 17+ and the legacy name).
var fiberKeyPrefixes = []string{"__reactFiber$", "__reactInternalInstance$"}

const (
	maxFiberDepth  = 50
	maxFiberFrames = 3
)

// FiberDetector walks React fibers from the node towards the root.
type FiberDetector struct{}

func (FiberDetector) Name() string { return "react" }

func (FiberDetector) Detect(el dom.Element) (*Info, error) {
	fiber := fiberOf(el)
	if fiber == nil {
		return nil, nil
	}

	var (
		name   string
		source *SourceLocation
		frames []string
	)
	cur := fiber
	for depth := 0; depth < maxFiberDepth && dom.IsObject(cur); depth++ {
		if fnName := fiberComponentName(cur); fnName != "" {
			if name == "" {
				name = fnName
			}
			if len(frames) < maxFiberFrames {
				frames = append(frames, fnName)
			}
		}
		if source == nil {
			source = debugSource(cur)
		}
		if name != "" && source != nil && len(frames) >= maxFiberFrames {
			break
		}

		next, ok := dom.Lookup(cur, "return")
		if !ok {
			next, ok = dom.Lookup(cur, "_debugOwner")
		}
		if !ok {
			break
		}
		cur = next
	}

	if name == "" && source == nil {
		return nil, nil
	}

	info := &Info{
		ComponentName:   name,
		Framework:       FrameworkReact,
		ElementLocation: source,
		SourceHierarchy: breadcrumb(frames, el),
	}
	switch {
	case source != nil && name != "":
		info.ComponentLocation = source.File + "@" + name
	case source != nil:
		info.ComponentLocation = source.File
	default:
		info.ComponentLocation = name
	}
	return info, nil
}

func fiberOf(el dom.Element) any {
	for _, key := range el.PropertyNames() {
		for _, prefix := range fiberKeyPrefixes {
			if strings.HasPrefix(key, prefix) {
				v, _ := el.Property(key)
				if dom.IsObject(v) {
					return v
				}
			}
		}
	}
	return nil
}

// fiberComponentName returns the name of a function-typed fiber. Host
// fibers (type is a tag string) yield "". forwardRef and memo wrappers are
// unwrapped one level.
func fiberComponentName(fiber any) string {
	typ, ok := dom.Lookup(fiber, "type")
	if !ok {
		return ""
	}
	if fn, ok := typ.(*dom.Func); ok {
		return funcName(fn)
	}
	if obj, ok := typ.(map[string]any); ok {
		if s := dom.LookupString(obj, "displayName"); s != "" {
			return s
		}
		for _, key := range []string{"render", "type"} {
			if fn, ok := obj[key].(*dom.Func); ok {
				if s := funcName(fn); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func funcName(fn *dom.Func) string {
	if s := dom.LookupString(fn, "displayName"); s != "" {
		return s
	}
	return fn.Name
}

func debugSource(fiber any) *SourceLocation {
	src, ok := dom.Lookup(fiber, "_debugSource")
	if !ok {
		return nil
	}
	file := dom.LookupString(src, "fileName")
	if file == "" {
		return nil
	}
	loc := &SourceLocation{File: file}
	loc.Line, _ = dom.LookupInt(src, "lineNumber")
	loc.Column, _ = dom.LookupInt(src, "columnNumber")
	return loc
}
