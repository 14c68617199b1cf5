package renderer

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/minima/internal/theme"
)

// Document renders the html template around body.
func Document(vars theme.HTMLVars, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)

		attrs := vars.HTMLAttributesString
		if attrs == "" {
			attrs = vars.HTMLAttributes.String()
		}

		h.raw("<!DOCTYPE html>\n<html" + attrs + ">\n<head>\n")
		h.render(HeadElements(vars.Head))
		if vars.HeadTitle != "" {
			h.raw("<title>")
			h.text(vars.HeadTitle)
			h.raw("</title>\n")
		}
		for _, tag := range vars.Tags {
			h.render(HTMLTag(tag))
		}
		h.raw("</head>\n")

		var bodyAttrs theme.Attributes
		bodyAttrs.AddClass(vars.Classes...)
		h.open("body", bodyAttrs)
		h.raw("\n")
		h.render(body)
		h.raw("\n</body>\n</html>\n")
		return h.err
	})
}

// HeadElements renders the head elements by weight.
func HeadElements(head theme.Head) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		for _, el := range head.Sorted() {
			h.raw("<" + el.Tag + el.Attributes.String() + ">\n")
		}
		return h.err
	})
}

// HTMLTag renders one style or script element of the head.
func HTMLTag(tag theme.HTMLTag) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.open(tag.Tag, tag.Attributes)
		h.raw(tag.ValuePrefix)
		h.raw(tag.Value)
		h.raw(tag.ValueSuffix)
		h.close(tag.Tag)
		h.raw("\n")
		return h.err
	})
}

// Regions holds the rendered regions of a page by name.
type Regions map[string]templ.Component

func (r Regions) get(name string) templ.Component {
	if c, ok := r[name]; ok && c != nil {
		return c
	}
	return templ.NopComponent
}

// Page renders the page template: the branding header, the regions in
// layout order and the node title at the top of the primary column.
// Absent regions render nothing.
func Page(vars theme.PageVars, regions Regions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)

		h.render(regions.get("page_top"))
		h.open("div", layoutAttrs(vars.ID("page"), "", ""))
		h.raw("\n")

		h.container("header", layoutAttrs(vars.ID("header"), "container", "banner"),
			templ.Join(Branding(vars), regions.get("header")))

		if c, ok := regions["navigation"]; ok {
			h.container("nav", layoutAttrs(vars.ID("navigation"), "container", "navigation"), c)
		}
		if c, ok := regions["top"]; ok {
			h.container("div", layoutAttrs(vars.ID("top"), "container", ""), c)
		}

		h.container("div", layoutAttrs(vars.ID("main"), "container", "main"), columns(vars, regions))

		if c, ok := regions["bottom"]; ok {
			h.container("div", layoutAttrs(vars.ID("bottom"), "container", ""), c)
		}
		if c, ok := regions["footer"]; ok {
			h.container("footer", layoutAttrs(vars.ID("footer"), "container", ""), c)
		}

		h.raw("</div>\n")
		h.render(regions.get("page_bottom"))
		return h.err
	})
}

// columns renders the primary column, holding the title header and the
// content region, followed by the secondary and tertiary columns.
func columns(vars theme.PageVars, regions Regions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.open("div", layoutAttrs(vars.ID("primary"), "grid__cell", ""))
		h.raw("\n<header>\n")
		if vars.Title != "" {
			h.open("h1", layoutAttrs(vars.ID("page-title"), "", ""))
			h.text(vars.Title)
			h.close("h1")
			h.raw("\n")
		}
		h.raw("</header>\n")
		if c, ok := regions["content"]; ok {
			h.wrap("div", layoutAttrs(vars.ID("content"), "grid", ""), c)
		}
		h.close("div")
		h.raw("\n")

		for _, name := range []string{"secondary", "tertiary"} {
			c, ok := regions[name]
			if !ok {
				continue
			}
			h.open("div", layoutAttrs(vars.ID(name), "grid__cell", ""))
			h.raw("\n")
			h.wrap("div", theme.Attributes{Class: []string{"grid"}}, c)
			h.close("div")
			h.raw("\n")
		}
		return h.err
	})
}

// Branding renders the logo, site name and slogan cell of the page header.
func Branding(vars theme.PageVars) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="branding grid__cell">` + "\n")
		if vars.BrandingLogo != nil {
			h.raw(`<a href="/" rel="home" class="branding__home">`)
			h.render(Image(*vars.BrandingLogo))
			h.raw("</a>\n")
		}
		if vars.BrandingName != "" {
			tag := vars.BrandingNameTag
			if tag == "" {
				tag = "div"
			}
			h.raw("<" + tag + ` class="branding__name"><a href="/" rel="home">`)
			h.text(vars.BrandingName)
			h.raw("</a></" + tag + ">\n")
		}
		if vars.BrandingSlogan != "" {
			h.raw(`<div class="branding__slogan">`)
			h.text(vars.BrandingSlogan)
			h.raw("</div>\n")
		}
		h.raw("</div>\n")
		return h.err
	})
}

// layoutAttrs builds the attributes of a layout element; empty class and
// role are left out.
func layoutAttrs(id, class, role string) theme.Attributes {
	var a theme.Attributes
	a.Set("id", id)
	a.AddClass(class)
	if role != "" {
		a.Set("role", role)
	}
	return a
}

// Region renders the region template. Regions without a wrapper element, or
// that asked for the no-wrapper template, render their content alone.
func Region(vars theme.RegionVars, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		if vars.Wrapper == "" || TemplateFor(theme.HookRegion, vars.Suggestions) == theme.SuggestionNoWrapper {
			h.render(content)
			return h.err
		}
		h.open(vars.Wrapper, vars.Attributes)
		h.raw("\n")
		h.render(content)
		h.raw("\n")
		h.close(vars.Wrapper)
		h.raw("\n")
		return h.err
	})
}

// Box renders a block through the box template: a grid cell around the
// block element holding the title and the content.
func Box(vars theme.BlockVars, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<div class="grid__cell">` + "\n")
		h.open("div", vars.Attributes)
		h.raw("\n")
		if vars.Title != "" {
			h.open("h2", vars.TitleAttributes)
			h.text(vars.Title)
			h.close("h2")
			h.raw("\n")
		}
		h.wrap("div", vars.ContentAttributes, content)
		h.close("div")
		h.raw("\n</div>\n")
		return h.err
	})
}

// Menu renders a menu tree. Links are expected to be preprocessed.
func Menu(links []theme.MenuLink) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(links) == 0 {
			return nil
		}
		h := newWriter(ctx, w)
		h.raw(`<ul class="menu">`)
		for _, link := range links {
			h.render(MenuLink(link))
		}
		h.raw("</ul>")
		return h.err
	})
}

// MenuLink renders one menu item and its children.
func MenuLink(link theme.MenuLink) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.open("li", link.Attributes)

		attrs := link.LinkAttributes.Clone()
		attrs.Set("href", string(templ.URL(link.Href)))
		h.open("a", attrs)
		h.text(link.Title)
		h.close("a")

		h.render(Menu(link.Below))
		h.close("li")
		return h.err
	})
}

// Image renders an img element.
func Image(img theme.Image) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		attrs := img.Attributes.Clone()
		attrs.Set("src", string(templ.URL(img.Src)))
		attrs.Set("alt", img.Alt)
		if img.Title != "" {
			attrs.Set("title", img.Title)
		}
		if img.Width > 0 {
			attrs.Set("width", strconv.Itoa(img.Width))
		}
		if img.Height > 0 {
			attrs.Set("height", strconv.Itoa(img.Height))
		}
		h.raw("<img" + attrs.String() + ">")
		return h.err
	})
}
