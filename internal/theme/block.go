package theme

import (
	"slices"
	"strings"
)

// TemplateBox is the template every block is rendered with.
const TemplateBox = "box"

// Block identifies a block by the module that provides it and its delta.
type Block struct {
	Module  string `yaml:"module"`
	Delta   string `yaml:"delta"`
	Subject string `yaml:"subject"`
}

// BlockVars are the variables of the box template.
type BlockVars struct {
	Block Block
	// Classes are the classes the host assigned to the block.
	Classes []string

	Attributes        Attributes
	TitleAttributes   Attributes
	ContentAttributes Attributes
	Title             string
}

var menuModules = []string{"menu", "menu_block"}

// PreprocessBlock shapes a block as a box grid cell.
func PreprocessBlock(ctx *Context, vars *BlockVars) {
	block := vars.Block

	vars.Attributes.Class = []string{"grid__cell", "box"}
	vars.TitleAttributes.Class = []string{"box__title"}
	vars.ContentAttributes.Class = []string{"box__content"}
	vars.Title = block.Subject

	if (block.Module == "system" && ctx.Menus[block.Delta]) || slices.Contains(menuModules, block.Module) {
		vars.Attributes.AddClass("box--menu")
	}

	// Host block classes all start with "block"; everything else is kept once.
	for _, class := range vars.Classes {
		if !strings.HasPrefix(class, "block") && !vars.Attributes.HasClass(class) {
			vars.Attributes.AddClass(class)
		}
	}
}
