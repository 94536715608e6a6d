package component

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/domtarget/dom"
)

// Attribute names for components that annotate their own markup.
const (
	AttrComponentName = "data-component-name"
	AttrComponentFile = "data-component-file"
)

// AttributeDetector reads data-component-name / data-component-file.
type AttributeDetector struct{}

func (AttributeDetector) Name() string { return "attributes" }

func (AttributeDetector) Detect(el dom.Element) (*Info, error) {
	name, hasName := el.Attribute(AttrComponentName)
	file, hasFile := el.Attribute(AttrComponentFile)
	if !hasName && !hasFile {
		return nil, nil
	}
	return &Info{
		ComponentLocation: file + "@" + name,
		ComponentName:     name,
		Framework:         FrameworkVanilla,
	}, nil
}

const maxBreadcrumbClasses = 2

// utilityClass matches atomic CSS classes (Tailwind-style) that say nothing
// about what the element is.
var utilityClass = regexp.MustCompile(`^-?(p|px|py|pt|pb|pl|pr|m|mx|my|mt|mb|ml|mr|w|h|min-w|min-h|max-w|max-h|gap|space-x|space-y|text|font|leading|tracking|bg|border|rounded|shadow|opacity|z|top|left|right|bottom|inset|flex|grid|col|row|items|justify|self|content|order|overflow|cursor|transition|duration|ease|translate|scale|rotate)(-|$)`)

// breadcrumb renders root-first component frames followed by the element
// label, e.g. "App > Layout > Card > div.card.header". frames arrive
// innermost first.
func breadcrumb(frames []string, el dom.Element) string {
	parts := make([]string, 0, len(frames)+1)
	for i := len(frames) - 1; i >= 0; i-- {
		parts = append(parts, frames[i])
	}
	parts = append(parts, elementLabel(el))
	return strings.Join(parts, " > ")
}

func elementLabel(el dom.Element) string {
	label := strings.ToLower(el.TagName())
	class, _ := el.Attribute("class")
	n := 0
	for _, c := range strings.Fields(class) {
		if n == maxBreadcrumbClasses {
			break
		}
		if isUtilityClass(c) {
			continue
		}
		label += "." + c
		n++
	}
	return label
}

func isUtilityClass(c string) bool {
	if strings.ContainsAny(c, ":[]/") {
		return true
	}
	switch c {
	case "block", "inline", "inline-block", "hidden", "relative", "absolute", "fixed", "sticky", "container":
		return true
	}
	return utilityClass.MatchString(c)
}
