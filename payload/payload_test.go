package payload

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/domtarget/component"
	"github.com/hazyhaar/domtarget/dom/memdom"
	"github.com/hazyhaar/domtarget/internal/idgen"
	"github.com/hazyhaar/domtarget/selection"
)

var fixed = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestBuilder(opts ...Option) *Builder {
	base := []Option{WithIDGenerator(idgen.Sequence("p")), WithClock(func() time.Time { return fixed })}
	return NewBuilder(append(base, opts...)...)
}

func TestBuild_Empty(t *testing.T) {
	p := newTestBuilder().Build(nil, nil)
	if p.Count != 0 || p.Elements == nil {
		t.Fatalf("got %+v", p)
	}
	data, _ := json.Marshal(p)
	if !strings.Contains(string(data), `"elements":[]`) {
		t.Errorf("empty selection should serialise as []: %s", data)
	}
	if p.ID != "p1" || !p.CreatedAt.Equal(fixed) {
		t.Errorf("id/time: %q %v", p.ID, p.CreatedAt)
	}
}

func TestBuild_Hierarchy(t *testing.T) {
	doc, err := memdom.ParseString(`<html><body>
		<div id="card"><h2>Pricing</h2><table><tr><th>Plan</th></tr><tr><td>Pro</td></tr></table>
		<a id="buy" href="/buy">Buy <b>now</b></a></div>
	</body></html>`, "https://shop.example.com/pricing")
	if err != nil {
		t.Fatal(err)
	}
	roots := []selection.ElementData{{
		Index:       1,
		TagName:     "div",
		XPath:       `//*[@id="card"]`,
		TextContent: "Pricing Plan Pro Buy now",
		Children: []selection.ElementData{{
			Index:         2,
			TagName:       "a",
			XPath:         `//*[@id="buy"]`,
			TextContent:   "Buy <b>now</b>",
			ComponentData: &component.Info{ComponentLocation: "src/Buy.vue", Framework: component.FrameworkVue},
		}},
	}}

	p := newTestBuilder().Build(doc, roots)
	if p.Count != 2 {
		t.Errorf("count: got %d", p.Count)
	}
	if p.PageURL != "https://shop.example.com/pricing" {
		t.Errorf("page url: got %q", p.PageURL)
	}
	for _, want := range []string{
		"Selected elements: 2 on https://shop.example.com/pricing",
		`1. <div> //*[@id="card"]`,
		`  2. <a> //*[@id="buy"] component=src/Buy.vue (vue)`,
		`text: "Buy now"`,
		"```json",
		"### Element 1 (div)",
		"## Pricing",
		"| Plan |",
		"(https://shop.example.com/buy)",
	} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("text missing %q:\n%s", want, p.Text)
		}
	}
	if strings.Contains(p.Text, "### Element 2") {
		t.Error("excerpts are rendered for roots only")
	}
}

func TestBuild_NoLocator(t *testing.T) {
	doc, _ := memdom.ParseString(`<html><body><p>x</p></body></html>`, "")
	p := newTestBuilder().Build(doc, []selection.ElementData{{Index: 1, TagName: "p"}})
	if !strings.Contains(p.Text, "(no reliable locator)") {
		t.Errorf("got:\n%s", p.Text)
	}
	if strings.Contains(p.Text, "### Element") {
		t.Error("unresolvable element must not get an excerpt")
	}
}

func TestBuild_ExcerptBound(t *testing.T) {
	doc, _ := memdom.ParseString(`<html><body><p id="long">`+strings.Repeat("é", 500)+`</p></body></html>`, "")
	roots := []selection.ElementData{{Index: 1, TagName: "p", XPath: `//*[@id="long"]`}}

	p := newTestBuilder(WithMaxExcerpt(101)).Build(doc, roots)
	i := strings.Index(p.Text, "### Element 1 (p)\n\n")
	if i < 0 {
		t.Fatalf("no excerpt:\n%s", p.Text)
	}
	excerpt := strings.TrimSpace(p.Text[i+len("### Element 1 (p)\n\n"):])
	if !strings.HasSuffix(excerpt, "…") || len(excerpt) > 101+len("…") {
		t.Errorf("excerpt not clipped: %d bytes", len(excerpt))
	}

	off := newTestBuilder(WithMaxExcerpt(0)).Build(doc, roots)
	if strings.Contains(off.Text, "### Element") {
		t.Error("excerpts should be disabled")
	}
}

func TestClip_RuneBoundary(t *testing.T) {
	if got := clip("héllo", 2); got != "h…" {
		t.Errorf("got %q", got)
	}
	if got := clip("abc", 5); got != "abc" {
		t.Errorf("got %q", got)
	}
}
