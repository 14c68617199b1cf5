package theme

// MenuLink is one link of a menu tree.
type MenuLink struct {
	Title string
	Href  string
	// Attributes belong to the list item.
	Attributes Attributes
	// LinkAttributes belong to the anchor.
	LinkAttributes Attributes
	Below          []MenuLink
}

// MenuLinkVars are the variables of a menu link.
type MenuLinkVars struct {
	Element MenuLink
}

var menuStates = map[string]string{
	"active-trail": "is-active",
	"expanded":     "is-expanded",
	"collapsed":    "is-collapsed",
}

// PreprocessMenuLink rewrites the item classes to "menu__item" plus state
// classes and strips the anchor classes.
func PreprocessMenuLink(vars *MenuLinkVars) {
	classes := []string{"menu__item"}
	for _, class := range vars.Element.Attributes.Class {
		if state, ok := menuStates[class]; ok {
			classes = append(classes, state)
		}
	}
	vars.Element.Attributes.Class = classes

	vars.Element.LinkAttributes.Remove("class")
}
