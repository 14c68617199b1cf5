// Package pager computes the visible page window of a listing and the ordered
// link descriptors a renderer turns into pagination markup.
//
// The calculator is a pure function of (current page, total pages, window
// size): it keeps no state between calls. Several pagers on one page are
// described by States, an explicit map from pager element to its own State.
package pager

import (
	"fmt"

	"github.com/conneroisu/minima/internal/errors"
)

// DefaultWindowSize is the number of page links shown around the current page.
const DefaultWindowSize = 9

// Kind identifies the role of a link in the pager.
type Kind string

const (
	KindFirst    Kind = "first"
	KindPrevious Kind = "previous"
	KindPage     Kind = "page"
	KindCurrent  Kind = "current"
	KindEllipsis Kind = "ellipsis"
	KindNext     Kind = "next"
	KindLast     Kind = "last"
)

// Link describes one pagination entry. Target is the 1-based page number the
// link navigates to and is nil for entries that are not navigable.
type Link struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Label   string `json:"label" yaml:"label"`
	Target  *int   `json:"target" yaml:"target"`
	Current bool   `json:"current" yaml:"current"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Labels holds the captions of the navigation shortcuts.
type Labels struct {
	First    string `json:"first" yaml:"first" mapstructure:"first"`
	Previous string `json:"previous" yaml:"previous" mapstructure:"previous"`
	Next     string `json:"next" yaml:"next" mapstructure:"next"`
	Last     string `json:"last" yaml:"last" mapstructure:"last"`
}

// DefaultLabels returns the stock shortcut captions.
func DefaultLabels() Labels {
	return Labels{
		First:    "« first",
		Previous: "‹ previous",
		Next:     "next ›",
		Last:     "last »",
	}
}

// withDefaults fills empty captions from DefaultLabels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.First == "" {
		l.First = d.First
	}
	if l.Previous == "" {
		l.Previous = d.Previous
	}
	if l.Next == "" {
		l.Next = d.Next
	}
	if l.Last == "" {
		l.Last = d.Last
	}
	return l
}

// Options tunes Compute.
type Options struct {
	WindowSize int
	Labels     Labels
	// Ellipses adds a non-navigable "…" entry on each side of the window
	// that does not reach the first or last page.
	Ellipses bool
}

// DefaultOptions returns the stock window size and labels.
func DefaultOptions() Options {
	return Options{
		WindowSize: DefaultWindowSize,
		Labels:     DefaultLabels(),
	}
}

// ComputeWindow returns the link descriptors for a pager showing the 0-based
// page current out of total pages, with windowSize page links.
func ComputeWindow(current, total, windowSize int) ([]Link, error) {
	opts := DefaultOptions()
	opts.WindowSize = windowSize
	return Compute(State{Current: current, Total: total}, opts)
}

// Compute returns the link descriptors for state.
func Compute(state State, opts Options) ([]Link, error) {
	first, last, err := Bounds(state.Current, state.Total, opts.WindowSize)
	if err != nil {
		return nil, err
	}
	if state.Total <= 1 {
		return []Link{}, nil
	}

	labels := opts.Labels.withDefaults()
	cur := clamp(state.Current, state.Total) + 1
	full := first == 1 && last == state.Total

	links := make([]Link, 0, last-first+7)

	if !full && first > 1 {
		links = append(links, nav(KindFirst, labels.First, 1, "Go to first page"))
	}
	if !full && cur > 1 {
		links = append(links, nav(KindPrevious, labels.Previous, cur-1, "Go to previous page"))
	}
	if opts.Ellipses && first > 1 {
		links = append(links, Link{Kind: KindEllipsis, Label: "…"})
	}

	for i := first; i <= last; i++ {
		if i == cur {
			links = append(links, Link{
				Kind:    KindCurrent,
				Label:   fmt.Sprint(i),
				Current: true,
				Title:   "Current page",
			})
			continue
		}
		links = append(links, nav(KindPage, fmt.Sprint(i), i, fmt.Sprintf("Go to page %d", i)))
	}

	if opts.Ellipses && last < state.Total {
		links = append(links, Link{Kind: KindEllipsis, Label: "…"})
	}
	if !full && cur < state.Total {
		links = append(links, nav(KindNext, labels.Next, cur+1, "Go to next page"))
	}
	if !full && last < state.Total {
		links = append(links, nav(KindLast, labels.Last, state.Total, "Go to last page"))
	}

	return links, nil
}

// Bounds returns the 1-based first and last page of the window around the
// 0-based page current. For total <= 1 it returns an empty window (0, 0).
func Bounds(current, total, windowSize int) (int, int, error) {
	if total < 0 {
		return 0, 0, errors.NewInvalidArgumentError(
			errors.ErrCodeNegativeTotal,
			fmt.Sprintf("total pages must not be negative, got %d", total),
		).WithContext("total", total)
	}
	if windowSize <= 0 {
		return 0, 0, errors.NewInvalidArgumentError(
			errors.ErrCodeInvalidWindow,
			fmt.Sprintf("window size must be positive, got %d", windowSize),
		).WithContext("window_size", windowSize)
	}
	if total <= 1 {
		return 0, 0, nil
	}

	cur := clamp(current, total) + 1
	middle := (windowSize + 1) / 2
	first := cur - middle + 1
	last := cur + windowSize - middle

	if last > total {
		first -= last - total
		last = total
	}
	if first < 1 {
		last = min(total, last+(1-first))
		first = 1
	}

	return first, last, nil
}

func nav(kind Kind, label string, target int, title string) Link {
	return Link{Kind: kind, Label: label, Target: &target, Title: title}
}

// clamp bounds a 0-based page index to [0, total).
func clamp(page, total int) int {
	if page < 0 {
		return 0
	}
	if page >= total {
		return total - 1
	}
	return page
}
