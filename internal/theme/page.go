package theme

import (
	"io/fs"
	"net/url"
	"strings"
)

// Image describes an img element.
type Image struct {
	Src        string
	Alt        string
	Title      string
	Width      int
	Height     int
	Attributes Attributes
}

// LayoutIDs are the ids the page template gives its layout elements. They
// are reserved in the theme context before regions pick their own ids.
var LayoutIDs = []string{
	"page", "header", "navigation", "top", "main", "primary", "page-title",
	"content", "secondary", "tertiary", "bottom", "footer",
}

// PageVars are the variables of the page template.
type PageVars struct {
	Logo       string
	SiteName   string
	SiteSlogan string
	IsFront    bool
	// Title is the title of the node shown on the page.
	Title string

	// IDs maps each layout id to the id reserved for it.
	IDs map[string]string

	// BrandingLogo is nil when the logo file does not exist.
	BrandingLogo *Image
	// BrandingNameTag is the element wrapping the site name: h1 on the front
	// page, div elsewhere.
	BrandingNameTag string
	BrandingName    string
	BrandingSlogan  string
}

// PreprocessPage reserves the layout ids and prepares the branding
// variables. The logo is only shown when its path resolves to an existing
// file in root.
func PreprocessPage(ctx *Context, root fs.FS, vars *PageVars) {
	vars.IDs = make(map[string]string, len(LayoutIDs))
	for _, id := range LayoutIDs {
		if ctx != nil {
			vars.IDs[id] = ctx.HTMLID(id)
		} else {
			vars.IDs[id] = id
		}
	}

	vars.BrandingLogo = nil
	if logoExists(root, vars.Logo) {
		img := &Image{
			Src: vars.Logo,
			Alt: vars.SiteName + "'s logo",
		}
		img.Attributes.AddClass("branding__logo")
		vars.BrandingLogo = img
	}

	if vars.IsFront {
		vars.BrandingNameTag = "h1"
	} else {
		vars.BrandingNameTag = "div"
	}
	vars.BrandingName = vars.SiteName
	vars.BrandingSlogan = vars.SiteSlogan
}

// ID returns the id reserved for a layout element, or name itself when the
// page was not preprocessed.
func (v PageVars) ID(name string) string {
	if id, ok := v.IDs[name]; ok {
		return id
	}
	return name
}

func logoExists(root fs.FS, logo string) bool {
	if root == nil || logo == "" {
		return false
	}
	u, err := url.Parse(logo)
	if err != nil {
		return false
	}
	name := strings.TrimPrefix(u.Path, "/")
	if !fs.ValidPath(name) || name == "." {
		return false
	}
	info, err := fs.Stat(root, name)
	return err == nil && !info.IsDir()
}
