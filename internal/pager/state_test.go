package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		totals   map[int]int
		expected States
	}{
		{
			name:     "empty query starts every pager at zero",
			raw:      "",
			totals:   map[int]int{0: 5, 1: 3},
			expected: States{0: {0, 0, 5}, 1: {1, 0, 3}},
		},
		{
			name:     "one index per element",
			raw:      "2,1",
			totals:   map[int]int{0: 5, 1: 3},
			expected: States{0: {0, 2, 5}, 1: {1, 1, 3}},
		},
		{
			name:     "indexes past the last page are clamped",
			raw:      "9,-4",
			totals:   map[int]int{0: 5, 1: 3},
			expected: States{0: {0, 4, 5}, 1: {1, 0, 3}},
		},
		{
			name:     "malformed index reads as zero",
			raw:      "abc,2",
			totals:   map[int]int{0: 5, 1: 3},
			expected: States{0: {0, 0, 5}, 1: {1, 2, 3}},
		},
		{
			name:     "pager without pages",
			raw:      "3",
			totals:   map[int]int{0: 0},
			expected: States{0: {0, 0, 0}},
		},
		{
			name:     "element beyond the query",
			raw:      "1",
			totals:   map[int]int{2: 4},
			expected: States{2: {2, 0, 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseQuery(tt.raw, tt.totals))
		})
	}
}

func TestStatesQuery(t *testing.T) {
	states := States{
		0: {Element: 0, Current: 2, Total: 5},
		1: {Element: 1, Current: 0, Total: 3},
	}

	assert.Equal(t, "4", states.Query(0, 4))
	assert.Equal(t, "", states.Query(0, 0))
	assert.Equal(t, "2,1", states.Query(1, 1))
	assert.Equal(t, "2,0,3", states.Query(2, 3))

	lone := States{0: {Element: 0, Current: 3, Total: 10}}
	assert.Equal(t, "", lone.Query(0, 0))
	assert.Equal(t, "7", lone.Query(0, 7))
}

func TestStatesElements(t *testing.T) {
	states := States{3: {}, 0: {}, 1: {}}
	assert.Equal(t, []int{0, 1, 3}, states.Elements())
}
