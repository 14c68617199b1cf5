package site

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minima/internal/errors"
	"github.com/conneroisu/minima/internal/pager"
)

func themeRoot() fstest.MapFS {
	return fstest.MapFS{"logo.png": {Data: []byte("png")}}
}

func defaultBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()
	f, err := Default()
	require.NoError(t, err)
	if opts.ThemeRoot == nil {
		opts.ThemeRoot = themeRoot()
	}
	return NewBuilder(f, opts)
}

func renderPage(t *testing.T, b *Builder, path, rawQuery string) (string, http.Header) {
	t.Helper()
	q, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)

	header := http.Header{}
	var buf bytes.Buffer
	require.NoError(t, b.Render(context.Background(), Request{Path: path, Query: q, Header: header}, &buf))
	return buf.String(), header
}

func TestDefaultFixture(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Minima", f.Site.Name)
	assert.Equal(t, "/", f.Site.Front)
	assert.Len(t, f.Nodes, 5)
	assert.Equal(t, []string{"footer-menu", "main-menu"}, f.MenuNames())

	n, ok := f.Node("/about/")
	require.True(t, ok)
	assert.Equal(t, "About", n.Title)

	n, ok = f.Node("about/colophon")
	require.True(t, ok)
	assert.Equal(t, "Colophon", n.Title)

	_, ok = f.Node("/missing")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse([]byte("site:\n  name: x\n  colour: red\nnodes:\n  - path: /\n"))
		require.Error(t, err)

		var te *errors.ThemeError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, errors.ErrCodeFixtureInvalid, te.Code)
	})

	t.Run("front defaults to root", func(t *testing.T) {
		f, err := Parse([]byte("site:\n  name: x\nnodes:\n  - path: /\n"))
		require.NoError(t, err)
		assert.Equal(t, "/", f.Site.Front)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := Parse(nil)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Fixture {
		return &Fixture{
			Site:  Info{Name: "Site"},
			Nodes: []Node{{Path: "/"}},
			Menus: map[string][]MenuItem{"main": {{Title: "Home", Href: "/"}}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Fixture)
		message string
	}{
		{"missing name", func(f *Fixture) { f.Site.Name = " " }, "site name is required"},
		{"no nodes", func(f *Fixture) { f.Nodes = nil }, "at least one node"},
		{"relative path", func(f *Fixture) { f.Nodes[0].Path = "about" }, "must start with /"},
		{"traversal", func(f *Fixture) { f.Nodes[0].Path = "/../etc" }, "must not contain .."},
		{"duplicate path", func(f *Fixture) {
			f.Nodes = append(f.Nodes, Node{Path: "/a"}, Node{Path: "/a/"})
		}, "duplicate path"},
		{"negative page size", func(f *Fixture) { f.Nodes[0].ItemsPerPage = -1 }, "must not be negative"},
		{"menu item without href", func(f *Fixture) {
			f.Menus["main"][0].Below = []MenuItem{{Title: "Child"}}
		}, "href cannot be empty"},
		{"script href", func(f *Fixture) {
			f.Menus["main"][0].Href = "javascript:alert(1)"
		}, "is not allowed"},
		{"listing href", func(f *Fixture) {
			f.Nodes[0].Listing = []Item{{Title: "Bad", Href: "data:text/html,x"}}
		}, "is not allowed"},
		{"query in path", func(f *Fixture) { f.Nodes[0].Path = "/a?b=c" }, "query or fragment"},
		{"unknown region", func(f *Fixture) {
			f.Regions = map[string][]BlockSpec{"sidebar": nil}
		}, "unknown region"},
		{"unknown menu", func(f *Fixture) {
			f.Regions = map[string][]BlockSpec{"navigation": {{Menu: "nope", Classes: nil}}}
			f.Regions["navigation"][0].Module = "system"
		}, "unknown menu"},
		{"block without module", func(f *Fixture) {
			f.Regions = map[string][]BlockSpec{"footer": {{Body: "x"}}}
		}, "module is required"},
		{"bad asset tag", func(f *Fixture) {
			f.Assets = []Asset{{Tag: "link", Src: "/a.css"}}
		}, "must be style or script"},
		{"empty asset", func(f *Fixture) {
			f.Assets = []Asset{{Tag: "script"}}
		}, "src or inline is required"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(f)

			err := f.Validate()
			require.Error(t, err)

			var te *errors.ThemeError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, errors.ErrCodeValidationFailed, te.Code)
			assert.Contains(t, te.Message, tt.message)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "site.yml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  name: Loaded\nnodes:\n  - path: /\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Loaded", f.Site.Name)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadOrDefault(t *testing.T) {
	f, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "Minima", f.Site.Name)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.IsNotFound(err))
}

func TestBuildFrontPage(t *testing.T) {
	b := defaultBuilder(t, Options{})
	out, header := renderPage(t, b, "/", "")

	assert.Equal(t, "IE=edge,chrome=1", header.Get("X-UA-Compatible"))

	assert.Contains(t, out, `<html dir="ltr" lang="en">`)
	assert.Contains(t, out, `<meta charset="utf-8">`)
	assert.Contains(t, out, "<title>Minima | A minimal theme</title>")
	assert.Contains(t, out, `<body class="front not-logged-in secondary">`)

	assert.Contains(t, out, `<h1 class="branding__name">`)
	assert.Contains(t, out, `alt="Minima&#39;s logo"`)
	assert.Contains(t, out, `class="branding__logo"`)

	assert.Contains(t, out, `<nav class="container" id="navigation" role="navigation">`)
	assert.Contains(t, out, `<footer class="container" id="footer">`)
	assert.Contains(t, out, `<div class="grid__cell" id="secondary">`)
	assert.Contains(t, out, `<div class="container" id="main" role="main">`)
	assert.Contains(t, out, `<h1 id="page-title">Home</h1>`)
	// Region ids give way to the layout ids of the page template.
	assert.Contains(t, out, `<nav class="container" id="navigation--2" role="navigation">`)
	assert.NotContains(t, out, `<main`)

	assert.Contains(t, out, `class="grid__cell box box--menu" id="block-system-main-menu"`)
	assert.Contains(t, out, `class="grid__cell box box--menu footer__menu" id="block-menu-footer-menu"`)
	assert.Contains(t, out, `id="block-system-main"`)
	assert.NotContains(t, out, "block-menu footer__menu")

	assert.Contains(t, out, `<li class="menu__item is-active"><a href="/">Home</a></li>`)
	assert.Contains(t, out, `<li class="menu__item is-expanded">`)

	assert.Contains(t, out, `<style>@import url("/css/minima.css");</style>`)
	assert.Contains(t, out, "<script>document.documentElement.className += ' js';</script>")
	assert.NotContains(t, out, "CDATA")
	assert.NotContains(t, out, `type="text/css"`)

	assert.Contains(t, out, "Welcome to Minima.")
	assert.NotContains(t, out, `class="pager`)
}

func TestBuildInnerPage(t *testing.T) {
	b := defaultBuilder(t, Options{})
	out, _ := renderPage(t, b, "/about/colophon/", "")

	assert.Contains(t, out, "<title>Colophon | Minima</title>")
	assert.Contains(t, out, `<body class="not-front not-logged-in secondary section-about">`)
	assert.Contains(t, out, `<div class="branding__name">`)
	assert.Contains(t, out, `<h1 id="page-title">Colophon</h1>`)
	assert.Contains(t, out, `<li class="menu__item is-expanded is-active">`)
	assert.Contains(t, out, `<li class="menu__item is-active"><a href="/about/colophon">Colophon</a></li>`)
}

func TestBuildUnrootedPath(t *testing.T) {
	b := defaultBuilder(t, Options{})

	for _, path := range []string{"articles", "articles/"} {
		t.Run(path, func(t *testing.T) {
			out, _ := renderPage(t, b, path, "")
			assert.Contains(t, out, "<title>Articles | Minima</title>")
		})
	}

	queries, err := b.PagerPositions("articles")
	require.NoError(t, err)
	assert.Len(t, queries, 5)
}

func TestPagerPositions(t *testing.T) {
	b := defaultBuilder(t, Options{})

	queries, err := b.PagerPositions("/articles")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "1", "2", "3", "4"}, queries)

	queries, err = b.PagerPositions("/")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, queries)

	_, err = b.PagerPositions("/missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestBuildWithoutLogo(t *testing.T) {
	b := defaultBuilder(t, Options{ThemeRoot: fstest.MapFS{}})
	out, _ := renderPage(t, b, "/", "")
	assert.NotContains(t, out, "<img")
}

func TestBuildLoggedIn(t *testing.T) {
	b := defaultBuilder(t, Options{})
	var buf bytes.Buffer
	require.NoError(t, b.Render(context.Background(), Request{Path: "/contact", LoggedIn: true}, &buf))
	assert.Contains(t, buf.String(), `class="not-front logged-in secondary section-contact"`)
}

func TestBuildNotFound(t *testing.T) {
	b := defaultBuilder(t, Options{})

	_, err := b.Build(context.Background(), Request{Path: "/nope"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, errors.StatusCode(err))
}

func TestBuildPaging(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		window   int
		current  int
		articles []string
		absent   []string
		hrefs    []string
	}{
		{
			name:     "first page",
			window:   9,
			current:  0,
			articles: []string{"Article 1<", "Article 3<"},
			absent:   []string{"Article 4<"},
		},
		{
			name:     "third page, window covers all",
			query:    "page=2",
			window:   9,
			current:  2,
			articles: []string{"Article 7<", "Article 9<"},
			absent:   []string{"Article 6<", "Article 10<", "pager__item--first"},
			hrefs:    []string{`href="/articles"`, `href="/articles?page=4"`},
		},
		{
			name:     "narrow window",
			query:    "page=2",
			window:   3,
			current:  2,
			articles: []string{"Article 7<"},
			hrefs: []string{
				`<li class="pager__item pager__item--first"><a href="/articles" title="Go to first page">`,
				`href="/articles?page=1"`,
				`href="/articles?page=3"`,
				`<li class="pager__item pager__item--last"><a href="/articles?page=4" title="Go to last page">`,
			},
		},
		{
			name:     "out of range is clamped",
			query:    "page=99",
			window:   9,
			current:  4,
			articles: []string{"Article 13<", "Article 14<"},
			absent:   []string{"Article 12<"},
		},
		{
			name:     "malformed reads as first",
			query:    "page=abc",
			window:   9,
			current:  0,
			articles: []string{"Article 1<"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Pager: pager.DefaultOptions()}
			opts.Pager.WindowSize = tt.window
			b := defaultBuilder(t, opts)

			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			page, err := b.Build(context.Background(), Request{Path: "/articles", Query: q})
			require.NoError(t, err)
			assert.Equal(t, tt.current, page.States[0].Current)
			assert.Equal(t, 5, page.States[0].Total)

			var current []pager.Link
			for _, l := range page.Pagers[0] {
				if l.Current {
					current = append(current, l)
				}
			}
			require.Len(t, current, 1)
			assert.Equal(t, strconv.Itoa(tt.current+1), current[0].Label)
			assert.Nil(t, current[0].Target)

			var buf bytes.Buffer
			require.NoError(t, page.Document.Render(context.Background(), &buf))
			out := buf.String()

			for _, want := range tt.articles {
				assert.Contains(t, out, want)
			}
			for _, absent := range tt.absent {
				assert.NotContains(t, out, absent)
			}
			for _, href := range tt.hrefs {
				assert.Contains(t, out, href)
			}
		})
	}
}

func TestBuildSeveralPagers(t *testing.T) {
	f, err := Parse([]byte(`
site:
  name: Multi
nodes:
  - path: /
    items_per_page: 1
    listing:
      - {title: A}
      - {title: B}
regions:
  secondary:
    - module: views
      delta: recent
      listing:
        - {title: R1, href: /r1}
        - {title: R2, href: /r2}
        - {title: R3, href: /r3}
`))
	require.NoError(t, err)

	b := NewBuilder(f, Options{ItemsPerPage: 2})
	page, err := b.Build(context.Background(), Request{Path: "/", Query: url.Values{"page": {"1,1"}}})
	require.NoError(t, err)

	assert.Equal(t, pager.State{Element: 0, Current: 1, Total: 2}, page.States[0])
	assert.Equal(t, pager.State{Element: 1, Current: 1, Total: 2}, page.States[1])
	assert.Len(t, page.Pagers, 2)

	var buf bytes.Buffer
	require.NoError(t, page.Document.Render(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "<li class=\"listing__item\">B</li>")
	assert.Contains(t, out, `<a href="/r3">R3</a>`)
	assert.NotContains(t, out, `<a href="/r1">R1</a>`)

	// Moving one pager keeps the position of the other.
	assert.Contains(t, out, `href="/?page=1"`)
	assert.Contains(t, out, `href="/?page=0%2C1"`)
	assert.Equal(t, 2, strings.Count(out, `<ul class="pager inline">`))
}

func TestBuildIsRequestScoped(t *testing.T) {
	b := defaultBuilder(t, Options{})

	var wg sync.WaitGroup
	outputs := make([]string, 8)
	errs := make([]error, 8)
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			errs[i] = b.Render(context.Background(), Request{Path: "/articles"}, &buf)
			outputs[i] = buf.String()
		}(i)
	}
	wg.Wait()

	for i := range outputs {
		require.NoError(t, errs[i])
		assert.Equal(t, outputs[0], outputs[i])
		assert.NotContains(t, outputs[i], "--2")
	}
}
