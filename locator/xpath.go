// Package locator computes structural paths that re-find a DOM element
// later, and resolves them back against a document.
//
// Paths are XPath-shaped: an ancestor chain of tag steps with 1-based
// positional predicates among same-tag siblings, short-circuited at the first
// ancestor carrying a document-unique id.
package locator

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domtarget/dom"
)

// invalidIDChars disqualify an id from anchoring a path. The double quote
// would terminate the string literal of the predicate.
const invalidIDChars = `[](){}<>"`

type step struct {
	value     string
	optimized bool // terminal step, path is already anchored
	idAnchor  bool
}

// XPath returns the structural path of el, or "" when no reliable path
// exists. It never panics on partial trees: a detached element yields the
// path computed up to its detached root.
func XPath(el dom.Element) string {
	if el == nil {
		return ""
	}
	doc := el.OwnerDocument()
	if doc != nil {
		if root := doc.DocumentElement(); root != nil && root == el {
			return "/html"
		}
		if body := doc.Body(); body != nil && body == el {
			return "//body"
		}
	}

	var steps []step
	for cur := el; cur != nil; cur = cur.ParentElement() {
		s, ok := stepFor(cur, doc, cur == el)
		if !ok {
			return ""
		}
		steps = append(steps, s)
		if s.optimized {
			break
		}
	}
	if len(steps) == 0 {
		return ""
	}

	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[len(steps)-1-i] = s.value
	}
	path := strings.Join(parts, "/")
	if steps[len(steps)-1].idAnchor {
		return path
	}
	return "/" + path
}

func stepFor(el dom.Element, doc dom.Document, isTarget bool) (step, bool) {
	if id, ok := el.Attribute("id"); ok && uniqueID(doc, id) {
		return step{value: fmt.Sprintf(`//*[@id="%s"]`, id), optimized: true, idAnchor: true}, true
	}

	tag := strings.ToLower(el.TagName())
	switch tag {
	case "html", "head", "body":
		return step{value: tag, optimized: true}, true
	}

	idx, ok := siblingIndex(el)
	if !ok {
		return step{}, false
	}

	value := tag
	if isTarget && tag == "input" {
		typ, hasType := el.Attribute("type")
		_, hasID := el.Attribute("id")
		_, hasClass := el.Attribute("class")
		// A quote would end the predicate literal, as for ids.
		if hasType && !hasID && !hasClass && !strings.Contains(typ, `"`) {
			value += fmt.Sprintf(`[@type="%s"]`, typ)
		}
	}
	if idx > 0 {
		value += fmt.Sprintf("[%d]", idx+1)
	}
	return step{value: value}, true
}

// uniqueID applies the id-validity rule: non-empty, free of characters that
// break the predicate, and carried by exactly one element of the document.
func uniqueID(doc dom.Document, id string) bool {
	if id == "" || strings.ContainsAny(id, invalidIDChars) {
		return false
	}
	if doc == nil {
		return false
	}
	return doc.CountID(id) == 1
}

// siblingIndex returns the 0-based ordinal of el among its parent's children
// sharing its tag, or 0 when it has no same-tag sibling. ok is false when the
// parent does not list el, which happens when the tree changed mid-walk.
func siblingIndex(el dom.Element) (int, bool) {
	parent := el.ParentElement()
	if parent == nil {
		return 0, true
	}
	tag := el.TagName()
	children := parent.Children()

	hasSimilar := false
	for _, c := range children {
		if c != el && strings.EqualFold(c.TagName(), tag) {
			hasSimilar = true
			break
		}
	}
	if !hasSimilar {
		return 0, true
	}

	ordinal := 0
	for _, c := range children {
		if !strings.EqualFold(c.TagName(), tag) {
			continue
		}
		if c == el {
			return ordinal, true
		}
		ordinal++
	}
	return 0, false
}
