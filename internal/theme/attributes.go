package theme

import (
	"slices"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// Attributes is the attribute set of one HTML element. The class list is kept
// apart from the scalar attributes so preprocessors can append, filter and
// replace classes without string surgery. The zero value is ready to use.
type Attributes struct {
	Class  []string
	values map[string]string
}

// Set assigns a scalar attribute. Setting "class" replaces the class list.
func (a *Attributes) Set(name, value string) *Attributes {
	if name == "class" {
		a.Class = strings.Fields(value)
		return a
	}
	if a.values == nil {
		a.values = make(map[string]string)
	}
	a.values[name] = value
	return a
}

// Get returns a scalar attribute.
func (a Attributes) Get(name string) (string, bool) {
	if name == "class" {
		return strings.Join(a.Class, " "), len(a.Class) > 0
	}
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether the attribute is present.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Remove deletes attributes; removing "class" empties the class list.
func (a *Attributes) Remove(names ...string) {
	for _, name := range names {
		if name == "class" {
			a.Class = nil
			continue
		}
		delete(a.values, name)
	}
}

// AddClass appends classes, skipping empty ones.
func (a *Attributes) AddClass(classes ...string) *Attributes {
	for _, c := range classes {
		if c != "" {
			a.Class = append(a.Class, c)
		}
	}
	return a
}

// HasClass reports whether class is in the class list.
func (a Attributes) HasClass(class string) bool {
	return slices.Contains(a.Class, class)
}

// Len returns the number of rendered attributes.
func (a Attributes) Len() int {
	n := len(a.values)
	if len(a.Class) > 0 {
		n++
	}
	return n
}

// Names returns the attribute names in serialization order.
func (a Attributes) Names() []string {
	names := make([]string, 0, a.Len())
	for name := range a.values {
		names = append(names, name)
	}
	if len(a.Class) > 0 {
		names = append(names, "class")
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := Attributes{Class: slices.Clone(a.Class)}
	if a.values != nil {
		out.values = make(map[string]string, len(a.values))
		for k, v := range a.values {
			out.values[k] = v
		}
	}
	return out
}

// String serializes the attributes with a leading space before each one,
// ready to be placed right after a tag name. Values are HTML escaped.
func (a Attributes) String() string {
	var b strings.Builder
	for _, name := range a.Names() {
		value, _ := a.Get(name)
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(templ.EscapeString(value))
		b.WriteByte('"')
	}
	return b.String()
}
