package memdom

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Inline style is kept in the style attribute so that Attributes and
// OuterHTML see what a browser would serialise.

// declarations parses the style attribute. ok is false when the attribute
// does not parse; callers then leave it untouched.
func (e *Element) declarations() (decls []*css.Declaration, ok bool) {
	s, _ := e.Attribute("style")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	// The parser only closes a declaration on ";".
	if !strings.HasSuffix(s, ";") {
		s += ";"
	}
	decls, err := parser.ParseDeclarations(s)
	if err != nil {
		return nil, false
	}
	for _, d := range decls {
		d.Property = strings.ToLower(d.Property)
	}
	return decls, true
}

func formatStyle(decls []*css.Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, " ")
}

func (e *Element) Style(prop string) string {
	prop = strings.ToLower(prop)
	decls, _ := e.declarations()
	for _, d := range decls {
		if d.Property == prop {
			return d.Value
		}
	}
	return ""
}

func (e *Element) SetStyle(prop, value string) {
	if value == "" {
		e.RemoveStyle(prop)
		return
	}
	prop = strings.ToLower(prop)
	decls, ok := e.declarations()
	if !ok {
		return
	}
	replaced := false
	for _, d := range decls {
		if d.Property == prop {
			d.Value = value
			d.Important = false
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, &css.Declaration{Property: prop, Value: value})
	}
	e.SetAttribute("style", formatStyle(decls))
}

func (e *Element) RemoveStyle(prop string) {
	if _, ok := e.Attribute("style"); !ok {
		return
	}
	prop = strings.ToLower(prop)
	decls, ok := e.declarations()
	if !ok {
		return
	}
	kept := decls[:0]
	for _, d := range decls {
		if d.Property != prop {
			kept = append(kept, d)
		}
	}
	e.SetAttribute("style", formatStyle(kept))
}
