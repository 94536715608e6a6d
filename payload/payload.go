// Package payload assembles the message handed to the external agent from
// a built selection hierarchy.
package payload

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/domtarget/dom"
	"github.com/hazyhaar/domtarget/internal/idgen"
	"github.com/hazyhaar/domtarget/locator"
	"github.com/hazyhaar/domtarget/selection"
)

// DefaultMaxExcerpt bounds the markdown excerpt per root element, in bytes.
const DefaultMaxExcerpt = 2000

// Payload is one submission of the selection.
type Payload struct {
	ID        string                  `json:"id"`
	PageURL   string                  `json:"page_url"`
	CreatedAt time.Time               `json:"created_at"`
	Count     int                     `json:"count"`
	Elements  []selection.ElementData `json:"elements"`
	Text      string                  `json:"text"`
}

// Builder renders payloads. It is safe for sequential reuse.
type Builder struct {
	md         *converter.Converter
	policy     *bluemonday.Policy
	maxExcerpt int
	newID      idgen.Generator
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxExcerpt sets the markdown excerpt bound. 0 disables excerpts.
func WithMaxExcerpt(n int) Option {
	return func(b *Builder) { b.maxExcerpt = n }
}

// WithIDGenerator overrides payload ID generation.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(b *Builder) { b.newID = gen }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy:     bluemonday.StrictPolicy(),
		maxExcerpt: DefaultMaxExcerpt,
		newID:      idgen.New,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build renders roots, as returned by selection.Registry.BuildHierarchy.
// doc resolves root locators for the markdown excerpts; it may be nil.
func (b *Builder) Build(doc dom.Document, roots []selection.ElementData) Payload {
	if roots == nil {
		roots = []selection.ElementData{}
	}
	p := Payload{
		ID:        b.newID(),
		CreatedAt: b.now().UTC(),
		Count:     count(roots),
		Elements:  roots,
	}
	if doc != nil {
		p.PageURL = doc.URL()
	}
	p.Text = b.render(doc, p)
	return p
}

func count(nodes []selection.ElementData) int {
	n := 0
	for _, d := range nodes {
		n += 1 + count(d.Children)
	}
	return n
}

func (b *Builder) render(doc dom.Document, p Payload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Selected elements: %d", p.Count)
	if p.PageURL != "" {
		fmt.Fprintf(&sb, " on %s", p.PageURL)
	}
	sb.WriteString("\n\n")
	for _, d := range p.Elements {
		b.outline(&sb, d, 0)
	}

	data, err := json.MarshalIndent(p.Elements, "", "  ")
	if err != nil {
		b.logger.Warn("payload: marshal elements", "error", err)
	} else {
		sb.WriteString("\n```json\n")
		sb.Write(data)
		sb.WriteString("\n```\n")
	}

	if doc == nil || b.maxExcerpt <= 0 {
		return sb.String()
	}
	for _, d := range p.Elements {
		excerpt := b.excerpt(doc, d, p.PageURL)
		if excerpt == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n### Element %d (%s)\n\n%s\n", d.Index, d.TagName, excerpt)
	}
	return sb.String()
}

func (b *Builder) outline(sb *strings.Builder, d selection.ElementData, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%d. <%s>", indent, d.Index, d.TagName)
	if d.XPath != "" {
		fmt.Fprintf(sb, " %s", d.XPath)
	} else {
		sb.WriteString(" (no reliable locator)")
	}
	if c := d.ComponentData; c != nil {
		fmt.Fprintf(sb, " component=%s", c.ComponentLocation)
		if c.Framework != "" {
			fmt.Fprintf(sb, " (%s)", c.Framework)
		}
		if c.SourceHierarchy != "" {
			fmt.Fprintf(sb, " path=%q", c.SourceHierarchy)
		}
	}
	sb.WriteString("\n")
	if text := b.cleanText(d.TextContent); text != "" {
		fmt.Fprintf(sb, "%s   text: %q\n", indent, text)
	}
	for _, c := range d.Children {
		b.outline(sb, c, depth+1)
	}
}

// cleanText strips markup and collapses whitespace in page text before it is
// embedded in the agent prompt.
func (b *Builder) cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(b.policy.Sanitize(s))), " ")
}

func (b *Builder) excerpt(doc dom.Document, d selection.ElementData, pageURL string) string {
	if d.XPath == "" {
		return ""
	}
	el := locator.Resolve(doc, d.XPath)
	if el == nil {
		return ""
	}
	markup := el.OuterHTML()
	if markup == "" {
		return ""
	}
	md, err := b.md.ConvertString(markup, converter.WithDomain(pageURL))
	if err != nil {
		b.logger.Debug("payload: markdown conversion failed", "xpath", d.XPath, "error", err)
		return ""
	}
	return clip(strings.TrimSpace(md), b.maxExcerpt)
}

// clip cuts s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
