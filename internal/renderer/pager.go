package renderer

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/conneroisu/minima/internal/pager"
	"github.com/conneroisu/minima/internal/theme"
)

// HrefFunc returns the URL of the 1-based page target.
type HrefFunc func(target int) string

// QueryHref links pager element of states to base with the "page" query
// parameter of the target page. Other pagers keep their position.
func QueryHref(base string, states pager.States, element int) HrefFunc {
	return func(target int) string {
		q := states.Query(element, target-1)
		if q == "" {
			if base == "" {
				return "?"
			}
			return base
		}
		return base + "?" + pager.QueryKey + "=" + url.QueryEscape(q)
	}
}

// Pager renders the link descriptors as an inline list. An empty list renders
// nothing.
func Pager(links []pager.Link, href HrefFunc) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(links) == 0 {
			return nil
		}
		h := newWriter(ctx, w)
		h.raw(`<ul class="pager inline">`)
		for _, link := range links {
			var item theme.Attributes
			item.AddClass("pager__item", "pager__item--"+string(link.Kind))
			if link.Current {
				item.AddClass("is-current")
			}
			h.open("li", item)

			switch {
			case link.Target != nil && href != nil:
				var a theme.Attributes
				a.Set("href", string(templ.URL(href(*link.Target))))
				if link.Title != "" {
					a.Set("title", link.Title)
				}
				h.open("a", a)
				h.text(link.Label)
				h.close("a")
			case link.Current:
				var span theme.Attributes
				span.Set("aria-current", "page")
				if link.Title != "" {
					span.Set("title", link.Title)
				}
				h.open("span", span)
				h.text(link.Label)
				h.close("span")
			default:
				h.text(link.Label)
			}

			h.close("li")
		}
		h.raw("</ul>")
		return h.err
	})
}
