package theme

// SuggestionNoWrapper asks the renderer to emit a region's content without
// any wrapping element.
const SuggestionNoWrapper = "region__no_wrapper"

// RegionVars are the variables of a region template.
type RegionVars struct {
	Region     string
	Attributes Attributes
	// Wrapper is the wrapping element; empty means none.
	Wrapper   string
	Container bool
	GridCell  bool
	// Suggestions are alternative templates, most specific first.
	Suggestions []string
}

// PreprocessRegion assigns the wrapper element, layout role and layout
// classes of a region.
func PreprocessRegion(ctx *Context, vars *RegionVars) {
	vars.Attributes.Set("id", ctx.HTMLID(vars.Region))

	vars.Wrapper = "div"
	vars.Container = false
	vars.GridCell = false

	switch vars.Region {
	case "header":
		vars.Wrapper = ""

	case "navigation":
		vars.Wrapper = "nav"
		vars.Container = true
		vars.Attributes.Set("role", "navigation")

	case "secondary", "tertiary":
		vars.GridCell = true
		vars.Attributes.AddClass("grid__cell")

	case "top", "bottom":
		vars.Container = true

	case "footer":
		vars.Wrapper = "footer"
		vars.Container = true

	case "page_top", "page_bottom":
		vars.Suggestions = append([]string{SuggestionNoWrapper}, vars.Suggestions...)
	}

	if !vars.Container && !vars.GridCell {
		vars.Attributes.AddClass("grid")
	}

	if vars.Container {
		vars.Attributes.AddClass("container")
	}
}
