package component

import (
	"path"
	"strings"

	"github.com/hazyhaar/domtarget/dom"
)

// vueProbe names a node field and the path from it to a component options
// object (the thing carrying __file and __name).
type vueProbe struct {
	field   string
	options []string
}

// vueProbes are tried in order; the first yielding a non-empty __file wins.
var vueProbes = []vueProbe{
	{field: "__vueParentComponent", options: []string{"type"}},
	{field: "__vueParentComponent", options: []string{"vnode", "type"}},
	{field: "__vnode", options: []string{"ctx", "type"}},
	{field: "__vue__", options: []string{"$options"}},
	{field: "__vue__", options: []string{"$vnode", "componentOptions", "Ctor", "options"}},
	{field: "__vnode", options: []string{"type"}},
	{field: "__vueParentComponent", options: []string{"parent", "type"}},
}

const maxVueFrames = 3

// VueDetector reads Vue 2 and Vue 3 runtime fields.
type VueDetector struct{}

func (VueDetector) Name() string { return "vue" }

func (VueDetector) Detect(el dom.Element) (*Info, error) {
	for _, p := range vueProbes {
		root, ok := el.Property(p.field)
		if !ok || !dom.IsObject(root) {
			continue
		}
		opts, ok := dom.Lookup(root, p.options...)
		if !ok {
			continue
		}
		file := dom.LookupString(opts, "__file")
		if file == "" {
			continue
		}
		info := &Info{
			ComponentLocation: file,
			ComponentName:     vueName(opts),
			Framework:         FrameworkVue,
		}
		enrichVue(el, info)
		return info, nil
	}
	return nil, nil
}

func vueName(opts any) string {
	for _, key := range []string{"__name", "name", "_componentTag"} {
		if s := dom.LookupString(opts, key); s != "" {
			return s
		}
	}
	if f, ok := opts.(*dom.Func); ok && f.Name != "" {
		return f.Name
	}
	return ""
}

// enrichVue adds the element's template position and a breadcrumb when a
// vnode with location metadata is reachable.
func enrichVue(el dom.Element, info *Info) {
	var vnode any
	for _, candidate := range [][]string{{"__vnode"}, {"__vueParentComponent", "vnode"}} {
		root, ok := el.Property(candidate[0])
		if !ok {
			continue
		}
		v, ok := dom.Lookup(root, candidate[1:]...)
		if !ok {
			continue
		}
		if _, ok := dom.Lookup(v, "loc", "start"); ok {
			vnode = v
			break
		}
	}
	if vnode == nil {
		return
	}

	loc := &SourceLocation{File: dom.LookupString(vnode, "loc", "file")}
	if loc.File == "" {
		loc.File = info.ComponentLocation
	}
	loc.Line, _ = dom.LookupInt(vnode, "loc", "start", "line")
	loc.Column, _ = dom.LookupInt(vnode, "loc", "start", "column")
	loc.EndLine, _ = dom.LookupInt(vnode, "loc", "end", "line")
	loc.EndColumn, _ = dom.LookupInt(vnode, "loc", "end", "column")
	info.ElementLocation = loc

	var frames []string
	instance, _ := el.Property("__vueParentComponent")
	for cur := instance; dom.IsObject(cur) && len(frames) < maxVueFrames; {
		if name := vueFrameName(cur); name != "" {
			frames = append(frames, name)
		}
		next, ok := dom.Lookup(cur, "parent")
		if !ok {
			break
		}
		cur = next
	}
	info.SourceHierarchy = breadcrumb(frames, el)
}

func vueFrameName(instance any) string {
	opts, ok := dom.Lookup(instance, "type")
	if !ok {
		return ""
	}
	if name := vueName(opts); name != "" {
		return name
	}
	if file := dom.LookupString(opts, "__file"); file != "" {
		base := path.Base(strings.ReplaceAll(file, `\`, "/"))
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return ""
}
