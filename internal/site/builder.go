package site

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/conneroisu/minima/internal/errors"
	"github.com/conneroisu/minima/internal/logging"
	"github.com/conneroisu/minima/internal/pager"
	"github.com/conneroisu/minima/internal/renderer"
	"github.com/conneroisu/minima/internal/theme"
)

// DefaultItemsPerPage is the listing page size when neither the node nor the
// builder options set one.
const DefaultItemsPerPage = 10

// Options configures a Builder.
type Options struct {
	// ThemeRoot resolves theme files such as the logo. Nil disables the logo.
	ThemeRoot    fs.FS
	Pager        pager.Options
	ItemsPerPage int
	Logger       logging.Logger
}

// Builder renders the pages of a fixture. It is safe for concurrent use; each
// request gets its own theme.Context.
type Builder struct {
	fixture *Fixture
	opts    Options
	logger  logging.Logger
}

// NewBuilder creates a builder for fixture.
func NewBuilder(fixture *Fixture, opts Options) *Builder {
	if opts.ItemsPerPage <= 0 {
		opts.ItemsPerPage = DefaultItemsPerPage
	}
	if opts.Pager.WindowSize == 0 {
		opts.Pager.WindowSize = pager.DefaultWindowSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Builder{
		fixture: fixture,
		opts:    opts,
		logger:  logger.WithComponent("site"),
	}
}

// Fixture returns the fixture the builder renders.
func (b *Builder) Fixture() *Fixture {
	return b.fixture
}

// Request is one page request.
type Request struct {
	Path     string
	Query    url.Values
	LoggedIn bool
	// Header receives the response headers the document needs. May be nil.
	Header http.Header
}

// Page is a built, not yet rendered, document.
type Page struct {
	Title    string
	Document templ.Component
	// States holds the position of every pager on the page.
	States pager.States
	// Pagers holds the computed links of every pager by element.
	Pagers map[int][]pager.Link
}

// listing is a paged list found while building, keyed by its pager element.
type listing struct {
	element int
	items   []Item
	perPage int
}

// Build assembles the themed document for req.
func (b *Builder) Build(ctx context.Context, req Request) (*Page, error) {
	perf := logging.StartOperation(b.logger, "build")

	page, err := b.build(req)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	perf.End(ctx)
	return page, nil
}

// Render builds the document for req and writes it to w.
func (b *Builder) Render(ctx context.Context, req Request, w io.Writer) error {
	page, err := b.Build(ctx, req)
	if err != nil {
		return err
	}
	if err := page.Document.Render(ctx, w); err != nil {
		return errors.NewInternalError(errors.ErrCodeRenderFailed,
			fmt.Sprintf("rendering %s", req.Path), err).WithHook(theme.HookHTML)
	}
	return nil
}

// PagerPositions returns the "page" query values that reach every page of
// every pager on path, moving one pager at a time. The first value is ""
// for the unpaged request.
func (b *Builder) PagerPositions(path string) ([]string, error) {
	page, err := b.build(Request{Path: path})
	if err != nil {
		return nil, err
	}

	queries := []string{""}
	for _, element := range page.States.Elements() {
		for i := 1; i < page.States[element].Total; i++ {
			queries = append(queries, page.States.Query(element, i))
		}
	}
	return queries, nil
}

func (b *Builder) build(req Request) (*Page, error) {
	path := cleanPath(req.Path)
	node, ok := b.fixture.Node(path)
	if !ok {
		return nil, errors.NewNotFoundError(errors.ErrCodePageNotFound,
			fmt.Sprintf("no page at %s", path)).WithContext("path", path)
	}

	tctx := theme.NewContext(path, b.fixture.MenuNames()...)
	isFront := path == cleanPath(b.fixture.Site.Front)

	listings := b.listings(node)
	totals := make(map[int]int, len(listings))
	for _, l := range listings {
		totals[l.element] = pageCount(len(l.items), l.perPage)
	}
	states := pager.ParseQuery(req.Query.Get(pager.QueryKey), totals)

	out := &Page{
		Title:  node.Title,
		States: states,
		Pagers: make(map[int][]pager.Link, len(listings)),
	}

	pagedLists := make(map[int]templ.Component, len(listings))
	for _, l := range listings {
		links, err := pager.Compute(states[l.element], b.opts.Pager)
		if err != nil {
			return nil, err
		}
		out.Pagers[l.element] = links

		current := states[l.element].Current
		start := min(current*l.perPage, len(l.items))
		end := min(start+l.perPage, len(l.items))
		pagedLists[l.element] = templ.Join(
			listItems(l.items[start:end]),
			renderer.Pager(links, renderer.QueryHref(path, states, l.element)),
		)
	}

	pageVars := theme.PageVars{
		Logo:       b.fixture.Site.Logo,
		SiteName:   b.fixture.Site.Name,
		SiteSlogan: b.fixture.Site.Slogan,
		IsFront:    isFront,
		Title:      node.Title,
	}
	theme.PreprocessPage(tctx, b.opts.ThemeRoot, &pageVars)

	regions, present := b.regions(tctx, node, path, pagedLists)

	htmlVars := theme.HTMLVars{
		Language:  b.fixture.Site.Language,
		IsFront:   isFront,
		LoggedIn:  req.LoggedIn,
		Regions:   present,
		HeadTitle: b.headTitle(node, isFront),
		Head:      theme.DefaultHead(),
		Tags:      b.tags(),
	}
	if htmlVars.Language.Code == "" {
		htmlVars.Language = theme.Language{Code: "en", Dir: "ltr"}
	}
	theme.PreprocessHTML(tctx, &htmlVars, req.Header)
	theme.AlterHead(htmlVars.Head)
	theme.ProcessHTML(&htmlVars)

	out.Document = renderer.Document(htmlVars, renderer.Page(pageVars, regions))
	return out, nil
}

// listings returns the paged lists of the page: the node listing is element
// 0, block listings follow in region order.
func (b *Builder) listings(node *Node) []listing {
	var out []listing
	perPage := node.ItemsPerPage
	if perPage <= 0 {
		perPage = b.opts.ItemsPerPage
	}
	out = append(out, listing{element: 0, items: node.Listing, perPage: perPage})

	element := 1
	for _, region := range RegionOrder {
		for _, block := range b.fixture.Regions[region] {
			if len(block.Listing) == 0 {
				continue
			}
			out = append(out, listing{element: element, items: block.Listing, perPage: b.opts.ItemsPerPage})
			element++
		}
	}
	return out
}

func (b *Builder) regions(tctx *theme.Context, node *Node, path string, lists map[int]templ.Component) (renderer.Regions, map[string]bool) {
	regions := make(renderer.Regions)
	present := make(map[string]bool)

	element := 1
	for _, region := range RegionOrder {
		var boxes []templ.Component

		if region == "content" {
			main := BlockSpec{Block: theme.Block{Module: "system", Delta: "main"}}
			boxes = append(boxes, b.box(tctx, main, nodeContent(node, lists[0])))
		}

		for _, spec := range b.fixture.Regions[region] {
			var parts []templ.Component
			if spec.Menu != "" {
				parts = append(parts, renderer.Menu(menuLinks(b.fixture.Menus[spec.Menu], path)))
			} else {
				parts = append(parts, renderer.Text(spec.Body))
			}
			if len(spec.Listing) > 0 {
				parts = append(parts, lists[element])
				element++
			}
			boxes = append(boxes, b.box(tctx, spec, templ.Join(parts...)))
		}

		if len(boxes) == 0 {
			continue
		}
		vars := theme.RegionVars{Region: region}
		theme.PreprocessRegion(tctx, &vars)
		regions[region] = renderer.Region(vars, templ.Join(boxes...))
		present[region] = true
	}
	return regions, present
}

func (b *Builder) box(tctx *theme.Context, spec BlockSpec, content templ.Component) templ.Component {
	module := theme.HTMLClass(spec.Module)
	vars := theme.BlockVars{
		Block:   spec.Block,
		Classes: append([]string{"block", "block-" + module}, spec.Classes...),
	}
	vars.Attributes.Set("id", tctx.HTMLID("block-"+spec.Module+"-"+spec.Delta))
	theme.PreprocessBlock(tctx, &vars)
	return renderer.Box(vars, content)
}

func (b *Builder) headTitle(node *Node, isFront bool) string {
	site := b.fixture.Site
	if isFront {
		if site.Slogan != "" {
			return site.Name + " | " + site.Slogan
		}
		return site.Name
	}
	return node.Title + " | " + site.Name
}

// tags converts the fixture assets into head tags the way a host emits them
// before the theme strips what HTML5 does not need.
func (b *Builder) tags() []theme.HTMLTag {
	tags := make([]theme.HTMLTag, 0, len(b.fixture.Assets))
	for _, a := range b.fixture.Assets {
		var tag theme.HTMLTag
		tag.Tag = a.Tag

		switch a.Tag {
		case "style":
			media := a.Media
			if media == "" {
				media = "all"
			}
			tag.Attributes.Set("type", "text/css").Set("media", media)
			tag.Value = a.Inline
			if a.Src != "" {
				tag.Value = fmt.Sprintf("@import url(%q);", a.Src)
			}
			tag.ValuePrefix = "\n<!--/*--><![CDATA[/*><!--*/\n"
			tag.ValueSuffix = "\n/*]]>*/-->\n"
		case "script":
			tag.Attributes.Set("type", "text/javascript")
			if a.Src != "" {
				tag.Attributes.Set("src", a.Src)
			} else {
				tag.Value = a.Inline
				tag.ValuePrefix = "\n<!--//--><![CDATA[//><!--\n"
				tag.ValueSuffix = "\n//--><!]]>\n"
			}
		}

		theme.ProcessHTMLTag(&tag)
		tags = append(tags, tag)
	}
	return tags
}

// menuLinks converts menu items into preprocessed links, marking the trail to
// the current path.
func menuLinks(items []MenuItem, path string) []theme.MenuLink {
	links := make([]theme.MenuLink, 0, len(items))
	for _, item := range items {
		below := menuLinks(item.Below, path)

		link := theme.MenuLink{Title: item.Title, Href: item.Href, Below: below}
		link.Attributes.AddClass(item.Classes...)
		if len(item.Below) > 0 {
			link.Attributes.AddClass("expanded")
		} else {
			link.Attributes.AddClass("leaf")
		}
		if onTrail(item, path) {
			link.Attributes.AddClass("active-trail")
			link.LinkAttributes.AddClass("active")
		}

		vars := theme.MenuLinkVars{Element: link}
		theme.PreprocessMenuLink(&vars)
		links = append(links, vars.Element)
	}
	return links
}

func onTrail(item MenuItem, path string) bool {
	if cleanPath(item.Href) == path {
		return true
	}
	for _, child := range item.Below {
		if onTrail(child, path) {
			return true
		}
	}
	return false
}

func pageCount(items, perPage int) int {
	if items == 0 || perPage <= 0 {
		return 0
	}
	return (items + perPage - 1) / perPage
}
