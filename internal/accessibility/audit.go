// Package accessibility audits rendered documents for the accessibility
// rules a themed page must satisfy: language, title, landmarks, image
// alternatives, link names, unique ids and heading order.
package accessibility

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Impact ranks how badly a violation affects users.
type Impact string

const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
)

// Rule describes one check.
type Rule struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Impact      Impact `json:"impact" yaml:"impact"`
	// Criteria is the WCAG success criterion the rule covers.
	Criteria string `json:"criteria" yaml:"criteria"`
}

// Rules checked by Audit.
var (
	RuleLang         = Rule{"missing-lang-attribute", "html element must have a lang attribute", ImpactSerious, "3.1.1"}
	RuleTitle        = Rule{"missing-title-element", "documents must contain a non-empty title", ImpactSerious, "2.4.2"}
	RuleMain         = Rule{"missing-main-landmark", "documents must have one main landmark", ImpactModerate, "1.3.1"}
	RuleAltText      = Rule{"missing-alt-text", "images must have alternative text", ImpactCritical, "1.1.1"}
	RuleLinkName     = Rule{"missing-link-name", "links must have an accessible name", ImpactSerious, "2.4.4"}
	RuleDuplicateID  = Rule{"duplicate-id", "ids must be unique", ImpactSerious, "4.1.1"}
	RuleHeadingOrder = Rule{"heading-order", "heading levels must not be skipped", ImpactModerate, "1.3.1"}
)

// Violation is one failed check.
type Violation struct {
	Rule    Rule   `json:"rule" yaml:"rule"`
	Element string `json:"element" yaml:"element"`
	Message string `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Rule.Impact, v.Rule.ID, v.Message)
}

// Audit parses the document read from r and returns its violations in
// document order.
func Audit(r io.Reader) ([]Violation, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	a := &auditor{ids: make(map[string]int)}
	a.walk(doc)
	a.finish()
	return a.violations, nil
}

type auditor struct {
	violations []Violation
	ids        map[string]int
	idOrder    []string
	lastLevel  int
	hasTitle   bool
	mains      int
}

func (a *auditor) add(rule Rule, n *html.Node, format string, args ...any) {
	a.violations = append(a.violations, Violation{
		Rule:    rule,
		Element: selector(n),
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *auditor) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		a.check(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		a.walk(c)
	}
}

func (a *auditor) check(n *html.Node) {
	if id, ok := attr(n, "id"); ok && id != "" {
		if a.ids[id] == 0 {
			a.idOrder = append(a.idOrder, id)
		}
		a.ids[id]++
	}
	if role, _ := attr(n, "role"); role == "main" && n.DataAtom != atom.Main {
		a.mains++
	}

	switch n.DataAtom {
	case atom.Html:
		if lang, _ := attr(n, "lang"); strings.TrimSpace(lang) == "" {
			a.add(RuleLang, n, "the document language is not set")
		}
	case atom.Title:
		if strings.TrimSpace(textContent(n)) != "" {
			a.hasTitle = true
		}
	case atom.Main:
		a.mains++
	case atom.Img:
		if _, ok := attr(n, "alt"); !ok {
			src, _ := attr(n, "src")
			a.add(RuleAltText, n, "image %q has no alt attribute", src)
		}
	case atom.A:
		if _, ok := attr(n, "href"); ok && accessibleName(n) == "" {
			href, _ := attr(n, "href")
			a.add(RuleLinkName, n, "link to %q has no text", href)
		}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		if a.lastLevel > 0 && level > a.lastLevel+1 {
			a.add(RuleHeadingOrder, n, "h%d follows h%d", level, a.lastLevel)
		}
		a.lastLevel = level
	}
}

func (a *auditor) finish() {
	if !a.hasTitle {
		a.violations = append(a.violations, Violation{Rule: RuleTitle, Element: "head", Message: "the document has no title"})
	}
	if a.mains != 1 {
		a.violations = append(a.violations, Violation{
			Rule:    RuleMain,
			Element: "body",
			Message: fmt.Sprintf("found %d main landmarks", a.mains),
		})
	}
	for _, id := range a.idOrder {
		if a.ids[id] > 1 {
			a.violations = append(a.violations, Violation{
				Rule:    RuleDuplicateID,
				Element: "#" + id,
				Message: fmt.Sprintf("id %q is used %d times", id, a.ids[id]),
			})
		}
	}
}

// Summary counts violations per rule id.
func Summary(violations []Violation) map[string]int {
	out := make(map[string]int)
	for _, v := range violations {
		out[v.Rule.ID]++
	}
	return out
}

// RuleIDs returns the ids of the rules violated, sorted.
func RuleIDs(violations []Violation) []string {
	summary := Summary(violations)
	ids := make([]string, 0, len(summary))
	for id := range summary {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// accessibleName approximates the name of an element: aria-label, then the
// text and image alternatives it contains, then its title.
func accessibleName(n *html.Node) string {
	if label, _ := attr(n, "aria-label"); strings.TrimSpace(label) != "" {
		return label
	}
	if name := strings.TrimSpace(nameFromContent(n)); name != "" {
		return name
	}
	title, _ := attr(n, "title")
	return strings.TrimSpace(title)
}

func nameFromContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			b.WriteString(c.Data)
		case c.Type == html.ElementNode && c.DataAtom == atom.Img:
			alt, _ := attr(c, "alt")
			b.WriteString(alt)
		case c.Type == html.ElementNode:
			b.WriteString(nameFromContent(c))
		}
	}
	return b.String()
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		} else {
			b.WriteString(textContent(c))
		}
	}
	return b.String()
}

// selector names n by tag, id and first class.
func selector(n *html.Node) string {
	s := n.Data
	if id, ok := attr(n, "id"); ok && id != "" {
		return s + "#" + id
	}
	if class, ok := attr(n, "class"); ok {
		if fields := strings.Fields(class); len(fields) > 0 {
			s += "." + fields[0]
		}
	}
	return s
}
