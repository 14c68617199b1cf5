package pager

import (
	"sort"
	"strconv"
	"strings"
)

// QueryKey is the query parameter carrying the page index of every pager.
const QueryKey = "page"

// State is the request-scoped position of one pager.
type State struct {
	// Element distinguishes several pagers rendered on the same page.
	Element int `json:"element" yaml:"element"`
	// Current is the 0-based page index.
	Current int `json:"current" yaml:"current"`
	// Total is the number of pages.
	Total int `json:"total" yaml:"total"`
}

// States maps a pager element to its state.
type States map[int]State

// ParseQuery reads the comma separated page indexes of a "page" query value,
// one per element, and pairs them with the page totals of the pagers present
// on the request. Missing or malformed indexes read as 0; indexes beyond the
// last page are clamped.
func ParseQuery(raw string, totals map[int]int) States {
	var indexes []string
	if raw != "" {
		indexes = strings.Split(raw, ",")
	}

	states := make(States, len(totals))
	for element, total := range totals {
		current := 0
		if element >= 0 && element < len(indexes) {
			if n, err := strconv.Atoi(strings.TrimSpace(indexes[element])); err == nil {
				current = n
			}
		}
		if total > 0 {
			current = clamp(current, total)
		} else {
			current = 0
		}
		states[element] = State{Element: element, Current: current, Total: total}
	}
	return states
}

// Query returns the "page" query value that moves element to the 0-based
// page while every other pager keeps its current page. Trailing zero indexes
// are trimmed, so the first page of a lone pager yields "".
func (s States) Query(element, page int) string {
	size := element + 1
	for e := range s {
		if e+1 > size {
			size = e + 1
		}
	}

	indexes := make([]int, size)
	for e, st := range s {
		if e >= 0 {
			indexes[e] = st.Current
		}
	}
	if element >= 0 {
		indexes[element] = page
	}

	for len(indexes) > 0 && indexes[len(indexes)-1] == 0 {
		indexes = indexes[:len(indexes)-1]
	}

	parts := make([]string, len(indexes))
	for i, n := range indexes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// Elements returns the pager elements in ascending order.
func (s States) Elements() []int {
	elements := make([]int, 0, len(s))
	for e := range s {
		elements = append(elements, e)
	}
	sort.Ints(elements)
	return elements
}
