// Package site is the host the theme renders for: a YAML fixture describing a
// small site (branding, menus, blocks per region and content nodes) and a
// Builder that turns a request into a themed document.
package site

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/minima/internal/errors"
	"github.com/conneroisu/minima/internal/theme"
	"github.com/conneroisu/minima/internal/validation"
)

// RegionOrder lists the page regions in layout order.
var RegionOrder = []string{
	"page_top",
	"header",
	"navigation",
	"top",
	"content",
	"secondary",
	"tertiary",
	"bottom",
	"footer",
	"page_bottom",
}

//go:embed default.yml
var defaultFixture []byte

// Fixture describes the site a Builder renders.
type Fixture struct {
	Site    Info                   `yaml:"site"`
	Menus   map[string][]MenuItem  `yaml:"menus"`
	Regions map[string][]BlockSpec `yaml:"regions"`
	Nodes   []Node                 `yaml:"nodes"`
	Assets  []Asset                `yaml:"assets"`
}

// Info holds the branding of the site.
type Info struct {
	Name     string         `yaml:"name"`
	Slogan   string         `yaml:"slogan"`
	Logo     string         `yaml:"logo"`
	Language theme.Language `yaml:"language"`
	// Front is the path of the front page, "/" when empty.
	Front string `yaml:"front"`
}

// MenuItem is one entry of a menu tree.
type MenuItem struct {
	Title   string     `yaml:"title"`
	Href    string     `yaml:"href"`
	Classes []string   `yaml:"classes"`
	Below   []MenuItem `yaml:"below"`
}

// BlockSpec places a block in a region.
type BlockSpec struct {
	theme.Block `yaml:",inline"`
	Classes     []string `yaml:"classes"`
	Body        string   `yaml:"body"`
	// Menu names the menu rendered as the block body.
	Menu    string `yaml:"menu"`
	Listing []Item `yaml:"listing"`
}

// Node is a page of content, optionally with a paged listing.
type Node struct {
	Path         string `yaml:"path"`
	Title        string `yaml:"title"`
	Body         string `yaml:"body"`
	Listing      []Item `yaml:"listing"`
	ItemsPerPage int    `yaml:"items_per_page"`
}

// Item is one entry of a listing.
type Item struct {
	Title   string `yaml:"title"`
	Href    string `yaml:"href"`
	Summary string `yaml:"summary"`
}

// Asset is a style or script emitted in the document head.
type Asset struct {
	Tag    string `yaml:"tag"`
	Src    string `yaml:"src"`
	Media  string `yaml:"media"`
	Inline string `yaml:"inline"`
}

// Load reads and validates the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("fixture %s does not exist", path)).WithContext("path", path)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("reading fixture %s", path), err).WithContext("path", path)
	}
	return Parse(data)
}

// Default returns the fixture bundled with the binary.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// LoadOrDefault loads the fixture at path, or the bundled one when path is
// empty.
func LoadOrDefault(path string) (*Fixture, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes and validates a fixture. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, &errors.ThemeError{
			Type:    errors.ErrorTypeConfig,
			Code:    errors.ErrCodeFixtureInvalid,
			Message: "decoding fixture",
			Cause:   err,
		}
	}
	if f.Site.Front == "" {
		f.Site.Front = "/"
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fixture for missing or inconsistent fields.
func (f *Fixture) Validate() error {
	var errs errors.ValidationErrorCollection

	if strings.TrimSpace(f.Site.Name) == "" {
		errs.AddField("site.name", f.Site.Name, "site name is required")
	}
	if len(f.Nodes) == 0 {
		errs.AddField("nodes", len(f.Nodes), "at least one node is required")
	}

	seen := make(map[string]bool, len(f.Nodes))
	for i, n := range f.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if err := validation.ValidateSitePath(n.Path); err != nil {
			errs.AddField(field+".path", n.Path, err.Error())
		}
		if seen[cleanPath(n.Path)] {
			errs.AddField(field+".path", n.Path, "duplicate path")
		}
		seen[cleanPath(n.Path)] = true
		if n.ItemsPerPage < 0 {
			errs.AddField(field+".items_per_page", n.ItemsPerPage, "must not be negative")
		}
		validateListing(&errs, field+".listing", n.Listing)
	}

	for name, items := range f.Menus {
		validateMenu(&errs, "menus."+name, items)
	}

	for region, blocks := range f.Regions {
		if !slices.Contains(RegionOrder, region) {
			errs.AddField("regions."+region, region, "unknown region")
		}
		for i, b := range blocks {
			field := fmt.Sprintf("regions.%s[%d]", region, i)
			if b.Module == "" {
				errs.AddField(field+".module", b.Module, "module is required")
			}
			if b.Menu != "" {
				if _, ok := f.Menus[b.Menu]; !ok {
					errs.AddField(field+".menu", b.Menu, "unknown menu")
				}
			}
			validateListing(&errs, field+".listing", b.Listing)
		}
	}

	for i, a := range f.Assets {
		if a.Tag != "style" && a.Tag != "script" {
			errs.AddField(fmt.Sprintf("assets[%d].tag", i), a.Tag, "must be style or script")
		}
		if a.Src == "" && a.Inline == "" {
			errs.AddField(fmt.Sprintf("assets[%d]", i), a.Tag, "src or inline is required")
		}
	}

	if errs.HasErrors() {
		return errs.ToThemeError()
	}
	return nil
}

func validateMenu(errs *errors.ValidationErrorCollection, field string, items []MenuItem) {
	for i, item := range items {
		f := fmt.Sprintf("%s[%d]", field, i)
		if item.Title == "" {
			errs.AddField(f+".title", item.Title, "title is required")
		}
		if err := validation.ValidateHref(item.Href); err != nil {
			errs.AddField(f+".href", item.Href, err.Error())
		}
		validateMenu(errs, f+".below", item.Below)
	}
}

func validateListing(errs *errors.ValidationErrorCollection, field string, items []Item) {
	for i, item := range items {
		if item.Href == "" {
			continue
		}
		if err := validation.ValidateHref(item.Href); err != nil {
			errs.AddField(fmt.Sprintf("%s[%d].href", field, i), item.Href, err.Error())
		}
	}
}

// MenuNames returns the names of the fixture menus, sorted.
func (f *Fixture) MenuNames() []string {
	names := make([]string, 0, len(f.Menus))
	for name := range f.Menus {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Node returns the node at path.
func (f *Fixture) Node(path string) (*Node, bool) {
	path = cleanPath(path)
	for i := range f.Nodes {
		if cleanPath(f.Nodes[i].Path) == path {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}

// cleanPath roots p and drops the trailing slash of every path but the root.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}
