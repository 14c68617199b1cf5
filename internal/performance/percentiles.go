// Package performance tracks render latencies over a sliding window of recent
// samples.
package performance

import (
	"slices"
	"sync"
	"time"
)

// DefaultWindow is the number of samples a calculator keeps.
const DefaultWindow = 1024

// PercentileCalculator keeps the most recent samples both in arrival order,
// for eviction, and sorted, for percentile queries. It is safe for
// concurrent use.
type PercentileCalculator struct {
	mu       sync.RWMutex
	ring     []float64
	sorted   []float64
	writePos int
	full     bool
}

// NewPercentileCalculator creates a calculator over the last maxSize samples.
// A non-positive maxSize selects DefaultWindow.
func NewPercentileCalculator(maxSize int) *PercentileCalculator {
	if maxSize <= 0 {
		maxSize = DefaultWindow
	}
	return &PercentileCalculator{
		ring:   make([]float64, maxSize),
		sorted: make([]float64, 0, maxSize),
	}
}

// AddValue records a sample, evicting the oldest once the window is full.
func (pc *PercentileCalculator) AddValue(value float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.full {
		old := pc.ring[pc.writePos]
		if i, ok := slices.BinarySearch(pc.sorted, old); ok {
			pc.sorted = slices.Delete(pc.sorted, i, i+1)
		}
	}

	i, _ := slices.BinarySearch(pc.sorted, value)
	pc.sorted = slices.Insert(pc.sorted, i, value)

	pc.ring[pc.writePos] = value
	pc.writePos = (pc.writePos + 1) % len(pc.ring)
	if pc.writePos == 0 {
		pc.full = true
	}
}

// AddDuration records d in milliseconds.
func (pc *PercentileCalculator) AddDuration(d time.Duration) {
	pc.AddValue(float64(d) / float64(time.Millisecond))
}

// GetPercentile returns the nearest-rank percentile p, 0 to 100, of the
// window. An empty window yields 0.
func (pc *PercentileCalculator) GetPercentile(p float64) float64 {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if len(pc.sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	return pc.sorted[int(float64(len(pc.sorted)-1)*p/100)]
}

// Size returns the number of samples in the window.
func (pc *PercentileCalculator) Size() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.sorted)
}

// Summary is a snapshot of the window, in milliseconds when fed durations.
type Summary struct {
	Samples int     `json:"samples"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
}

// Summary returns the median and tail percentiles of the window.
func (pc *PercentileCalculator) Summary() Summary {
	return Summary{
		Samples: pc.Size(),
		P50:     pc.GetPercentile(50),
		P95:     pc.GetPercentile(95),
		P99:     pc.GetPercentile(99),
	}
}

// Clear drops every sample.
func (pc *PercentileCalculator) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.sorted = pc.sorted[:0]
	pc.writePos = 0
	pc.full = false
}
