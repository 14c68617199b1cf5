// Package renderer provides the templ components that turn preprocessed theme
// variables into HTML.
//
// Every component is a templ.Component built from templ.ComponentFunc, so the
// output can be streamed through templ.Handler, nested inside other
// components or rendered to a buffer. Text is escaped with templ.EscapeString;
// attribute sets are serialized by theme.Attributes in a stable order so the
// markup is deterministic across requests.
package renderer

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/minima/internal/theme"
)

// Template names known to the renderer.
const (
	TemplateHTML     = theme.HookHTML
	TemplatePage     = theme.HookPage
	TemplateRegion   = theme.HookRegion
	TemplateMenuLink = theme.HookMenuLink
	TemplatePager    = theme.HookPager
)

var templates = map[string]bool{
	TemplateHTML:              true,
	TemplatePage:              true,
	TemplateRegion:            true,
	TemplateMenuLink:          true,
	TemplatePager:             true,
	theme.TemplateBox:         true,
	theme.SuggestionNoWrapper: true,
}

// TemplateFor resolves the template rendering hook: the first suggestion the
// renderer knows, else the hook's own template. Blocks always render through
// the box template.
func TemplateFor(hook string, suggestions []string) string {
	for _, s := range suggestions {
		if templates[s] {
			return s
		}
	}
	if hook == theme.HookBlock {
		return theme.TemplateBox
	}
	return hook
}

// Text renders s as escaped text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// htmlWriter accumulates the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) open(tag string, attrs theme.Attributes) {
	h.raw("<" + tag + attrs.String() + ">")
}

func (h *htmlWriter) close(tag string) {
	h.raw("</" + tag + ">")
}

// wrap renders c inside one element.
func (h *htmlWriter) wrap(tag string, attrs theme.Attributes, c templ.Component) {
	h.open(tag, attrs)
	h.raw("\n")
	h.render(c)
	h.raw("\n")
	h.close(tag)
	h.raw("\n")
}

// container renders c inside the container__inner and grid wrappers of a
// layout container.
func (h *htmlWriter) container(tag string, attrs theme.Attributes, c templ.Component) {
	h.open(tag, attrs)
	h.raw("\n" + `<div class="container__inner">` + "\n")
	h.wrap("div", theme.Attributes{Class: []string{"grid"}}, c)
	h.raw("</div>\n")
	h.close(tag)
	h.raw("\n")
}

func (h *htmlWriter) render(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}
