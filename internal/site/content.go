package site

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// nodeContent renders the body of a node followed by its paged listing.
func nodeContent(node *Node, listing templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<article class="node">`); err != nil {
			return err
		}
		if node.Body != "" {
			if _, err := io.WriteString(w, `<div class="node__body">`+templ.EscapeString(node.Body)+`</div>`); err != nil {
				return err
			}
		}
		if listing != nil {
			if err := listing.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</article>")
		return err
	})
}

// listItems renders one page of a listing.
func listItems(items []Item) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(items) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<ul class="listing">`); err != nil {
			return err
		}
		for _, item := range items {
			markup := `<li class="listing__item">`
			if item.Href != "" {
				markup += `<a href="` + templ.EscapeString(string(templ.URL(item.Href))) + `">` + templ.EscapeString(item.Title) + `</a>`
			} else {
				markup += templ.EscapeString(item.Title)
			}
			if item.Summary != "" {
				markup += `<p class="listing__summary">` + templ.EscapeString(item.Summary) + `</p>`
			}
			markup += "</li>"
			if _, err := io.WriteString(w, markup); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>")
		return err
	})
}
