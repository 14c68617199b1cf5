package theme

import (
	"net/http"
	"sort"
	"strings"
)

// Hook names of the themed elements.
const (
	HookHTML     = "html"
	HookPage     = "page"
	HookRegion   = "region"
	HookBlock    = "block"
	HookMenuLink = "menu_link"
	HookPager    = "pager"
)

// HeaderUACompatible is sent with every themed document unless the host
// already chose a value.
const (
	HeaderUACompatible = "X-UA-Compatible"
	UACompatibleValue  = "IE=edge,chrome=1"
)

// Language describes the content language of the document.
type Language struct {
	Code string `yaml:"code"`
	Dir  string `yaml:"dir"`
}

// HTMLVars are the variables of the outer html document.
type HTMLVars struct {
	Language Language
	IsFront  bool
	LoggedIn bool
	// Regions reports which page regions have content.
	Regions map[string]bool

	HeadTitle string
	Head      Head
	// Tags are the style and script elements of the head.
	Tags []HTMLTag

	HTMLAttributes Attributes
	// Classes is the class list of the body element.
	Classes []string

	// HTMLAttributesString is the serialized form of HTMLAttributes, set by
	// ProcessHTML.
	HTMLAttributesString string
}

// PreprocessHTML prepares the document variables. Headers the document needs
// are added to header unless already present.
func PreprocessHTML(ctx *Context, vars *HTMLVars, header http.Header) {
	vars.HTMLAttributes.Set("lang", vars.Language.Code)
	vars.HTMLAttributes.Set("dir", vars.Language.Dir)

	if header != nil && header.Get(HeaderUACompatible) == "" {
		header.Set(HeaderUACompatible, UACompatibleValue)
	}

	// Start from an empty class list; the host's defaults are not kept.
	classes := make([]string, 0, 5)

	if vars.IsFront {
		classes = append(classes, "front")
	} else {
		classes = append(classes, "not-front")
	}

	if vars.LoggedIn {
		classes = append(classes, "logged-in")
	} else {
		classes = append(classes, "not-logged-in")
	}

	if vars.Regions["secondary"] {
		classes = append(classes, "secondary")
	}
	if vars.Regions["tertiary"] {
		classes = append(classes, "tertiary")
	}

	if !vars.IsFront {
		classes = append(classes, HTMLClass("section-"+ctx.Section()))
	}

	vars.Classes = classes
}

// ProcessHTML flattens the html element attributes.
func ProcessHTML(vars *HTMLVars) {
	vars.HTMLAttributesString = vars.HTMLAttributes.String()
}

// HTMLTag is a single tag emitted into the document head, such as a style
// or script element.
type HTMLTag struct {
	Tag         string
	Attributes  Attributes
	Value       string
	ValuePrefix string
	ValueSuffix string
}

// ProcessHTMLTag drops markup that HTML5 makes redundant from style and
// script tags: the type attribute, CDATA wrappers and media="all".
func ProcessHTMLTag(tag *HTMLTag) {
	if tag.Tag != "style" && tag.Tag != "script" {
		return
	}

	tag.Attributes.Remove("type")
	tag.ValuePrefix = ""
	tag.ValueSuffix = ""

	if media, ok := tag.Attributes.Get("media"); ok && media == "all" {
		tag.Attributes.Remove("media")
	}
}

// HeadElement is one element of the document head.
type HeadElement struct {
	Tag        string
	Attributes Attributes
	Weight     int
}

// Head holds the head elements keyed by machine name.
type Head map[string]*HeadElement

// KeyContentType names the content type meta element of the head.
const KeyContentType = "system_meta_content_type"

// Sorted returns the elements ordered by weight, then by key.
func (h Head) Sorted() []*HeadElement {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := h[keys[i]].Weight, h[keys[j]].Weight
		if wi != wj {
			return wi < wj
		}
		return keys[i] < keys[j]
	})

	out := make([]*HeadElement, len(keys))
	for i, k := range keys {
		out[i] = h[k]
	}
	return out
}

// AlterHead simplifies the content type meta element to the HTML5 charset
// form.
func AlterHead(head Head) {
	el, ok := head[KeyContentType]
	if !ok || el == nil {
		return
	}
	content, ok := el.Attributes.Get("content")
	if !ok {
		return
	}

	var attrs Attributes
	attrs.Set("charset", strings.Replace(content, "text/html; charset=", "", 1))
	el.Attributes = attrs
}

// DefaultHead returns the head elements the host emits for every document.
func DefaultHead() Head {
	var contentType Attributes
	contentType.Set("http-equiv", "Content-Type").Set("content", "text/html; charset=utf-8")

	var viewport Attributes
	viewport.Set("name", "viewport").Set("content", "width=device-width, initial-scale=1")

	return Head{
		KeyContentType: {Tag: "meta", Attributes: contentType, Weight: -1000},
		"viewport":     {Tag: "meta", Attributes: viewport},
	}
}
