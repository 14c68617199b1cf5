// Package theme holds the preprocessors that shape the display variables of
// every themed element before it is rendered: the html document, the page,
// regions, blocks (rendered as boxes), menu links and head elements.
//
// Preprocessors are plain functions over request-scoped variable structs.
// Anything that used to be request-global, such as the registry of HTML ids
// already handed out or the set of known menus, travels in a *Context.
package theme

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Context carries the request-scoped state shared by preprocessors.
type Context struct {
	// RequestPath is the path of the current request without leading slash.
	RequestPath string
	// Menus holds the machine names of the menus the host knows about.
	Menus map[string]bool

	seenIDs map[string]int
}

// NewContext creates the preprocessing context of one request.
func NewContext(requestPath string, menus ...string) *Context {
	ctx := &Context{
		RequestPath: strings.Trim(requestPath, "/"),
		Menus:       make(map[string]bool, len(menus)),
		seenIDs:     make(map[string]int),
	}
	for _, m := range menus {
		ctx.Menus[m] = true
	}
	return ctx
}

// Section returns the first segment of the request path.
func (c *Context) Section() string {
	section, _, _ := strings.Cut(c.RequestPath, "/")
	return section
}

var (
	classReplacer = strings.NewReplacer(" ", "-", "_", "-", "/", "-", "[", "-", "]", "")
	idReplacer    = strings.NewReplacer(" ", "-", "_", "-", "[", "-", "]", "")

	invalidClassChars = regexp.MustCompile(`[^\x{002D}\x{0030}-\x{0039}\x{0041}-\x{005A}\x{005F}\x{0061}-\x{007A}\x{00A1}-\x{FFFF}]`)
	invalidIDChars    = regexp.MustCompile(`[^A-Za-z0-9\-_]`)
	repeatedHyphens   = regexp.MustCompile(`-+`)
)

// HTMLClass turns an arbitrary string into a valid CSS class name.
func HTMLClass(s string) string {
	return invalidClassChars.ReplaceAllString(classReplacer.Replace(toLower(s)), "")
}

// HTMLID turns s into a valid HTML id that has not been handed out before on
// this request. Repeated ids get a "--2", "--3", ... suffix.
func (c *Context) HTMLID(s string) string {
	id := idReplacer.Replace(toLower(s))
	id = invalidIDChars.ReplaceAllString(id, "")
	id = repeatedHyphens.ReplaceAllString(id, "-")

	if c.seenIDs == nil {
		c.seenIDs = make(map[string]int)
	}
	if n, ok := c.seenIDs[id]; ok {
		n++
		c.seenIDs[id] = n
		return fmt.Sprintf("%s--%d", id, n)
	}
	c.seenIDs[id] = 1
	return id
}

// toLower lowercases with Unicode-aware casing. Casers keep state, so each
// call gets its own.
func toLower(s string) string {
	return cases.Lower(language.Und).String(s)
}
