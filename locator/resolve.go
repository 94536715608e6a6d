package locator

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/domtarget/dom"
)

// Resolve finds the element a path produced by XPath points at, or nil.
//
// It understands the generator's own grammar rather than full XPath. A step
// without a positional predicate selects the first same-tag child, positions
// count same-tag siblings, and a leading html/head/body step anchors at that
// element of the document.
func Resolve(doc dom.Document, path string) dom.Element {
	if doc == nil || path == "" {
		return nil
	}
	switch path {
	case "/html":
		return doc.DocumentElement()
	case "//body":
		return doc.Body()
	}

	var cur dom.Element
	rest := path
	if strings.HasPrefix(rest, `//*[@id="`) {
		end := strings.Index(rest, `"]`)
		if end < 0 {
			return nil
		}
		id := rest[len(`//*[@id="`):end]
		cur = findByID(doc.DocumentElement(), id)
		if cur == nil {
			return nil
		}
		rest = rest[end+2:]
	}

	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return cur
	}
	for i, raw := range strings.Split(rest, "/") {
		s, ok := parseStep(raw)
		if !ok {
			return nil
		}
		if cur == nil && i == 0 {
			switch s.tag {
			case "html":
				cur = doc.DocumentElement()
			case "head":
				cur = doc.Head()
			case "body":
				cur = doc.Body()
			default:
				return nil
			}
			if cur == nil {
				return nil
			}
			continue
		}
		if cur == nil {
			return nil
		}
		cur = s.pick(cur)
		if cur == nil {
			return nil
		}
	}
	return cur
}

type parsedStep struct {
	tag      string
	position int // 1-based, 0 when absent
	typ      string
	hasType  bool
}

func parseStep(raw string) (parsedStep, bool) {
	var s parsedStep
	tag, preds, _ := strings.Cut(raw, "[")
	if tag == "" {
		return s, false
	}
	s.tag = strings.ToLower(tag)
	if preds == "" {
		return s, true
	}
	for _, p := range strings.Split("["+preds, "[") {
		if p == "" {
			continue
		}
		p = strings.TrimSuffix(p, "]")
		if v, ok := strings.CutPrefix(p, `@type="`); ok {
			s.typ = strings.TrimSuffix(v, `"`)
			s.hasType = true
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return s, false
		}
		s.position = n
	}
	return s, true
}

func (s parsedStep) pick(parent dom.Element) dom.Element {
	want := s.position
	if want == 0 {
		want = 1
	}
	n := 0
	for _, c := range parent.Children() {
		if strings.ToLower(c.TagName()) != s.tag {
			continue
		}
		n++
		if n != want {
			continue
		}
		if s.hasType {
			if v, _ := c.Attribute("type"); v != s.typ {
				return nil
			}
		}
		return c
	}
	return nil
}

func findByID(root dom.Element, id string) dom.Element {
	if root == nil {
		return nil
	}
	if v, ok := root.Attribute("id"); ok && v == id {
		return root
	}
	for _, c := range root.Children() {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
