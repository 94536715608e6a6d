package selection

import (
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/domtarget/component"
	"github.com/hazyhaar/domtarget/dom"
	"github.com/hazyhaar/domtarget/locator"
)

// MaxTextContent bounds ElementData.TextContent, in characters.
const MaxTextContent = 100

// ElementData is the serialised form of one selected element. Children holds
// the selected elements whose nearest selected ancestor is this one.
type ElementData struct {
	Index         int               `json:"index"`
	TagName       string            `json:"tagName"`
	XPath         string            `json:"xpath"`
	TextContent   string            `json:"textContent"`
	Attributes    map[string]string `json:"attributes"`
	Children      []ElementData     `json:"children"`
	ComponentData *component.Info   `json:"componentData,omitempty"`
}

// BuildHierarchy serialises the selection as a forest. Roots are selected
// elements without a selected ancestor, in index order. finder may be nil.
func (r *Registry) BuildHierarchy(finder component.Finder) []ElementData {
	parents := make(map[dom.Element]dom.Element, len(r.records))
	for _, rec := range r.records {
		parents[rec.el] = r.FindSelectedParent(rec.el)
	}

	roots := []ElementData{}
	for _, rec := range r.records {
		if parents[rec.el] == nil {
			roots = append(roots, r.elementData(rec, parents, finder))
		}
	}
	return roots
}

func (r *Registry) elementData(rec *record, parents map[dom.Element]dom.Element, finder component.Finder) ElementData {
	el := rec.el
	d := ElementData{
		Index:       rec.index,
		TagName:     el.TagName(),
		XPath:       locator.XPath(el),
		TextContent: truncate(strings.TrimSpace(el.TextContent()), MaxTextContent),
		Attributes:  make(map[string]string),
		Children:    []ElementData{},
	}
	for _, a := range el.Attributes() {
		if a.Name == "style" {
			continue
		}
		d.Attributes[a.Name] = a.Value
	}
	if finder != nil {
		d.ComponentData = finder(el)
	}
	for _, child := range r.records {
		if parents[child.el] == el {
			d.Children = append(d.Children, r.elementData(child, parents, finder))
		}
	}
	return d
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
