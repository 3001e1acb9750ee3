// internal/report/report.go
// Package report aggregates delay estimates for periodic console reporting:
// a rolling average over the current reporting window and a histogram
// bucketed by delay.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultBucketWidth is the histogram bucket width, in samples.
const DefaultBucketWidth = 16

// Summary is one reporting window's worth of aggregated estimates.
type Summary struct {
	// Count is the number of estimates observed in the window.
	Count int
	// AverageDelaySamples is the mean estimate over the window; meaningless
	// when Count is zero.
	AverageDelaySamples float64
}

// Aggregator accumulates delay estimates. Safe for concurrent use.
type Aggregator struct {
	mu          sync.Mutex
	window      []float64
	histogram   map[int]int
	bucketWidth int
}

// NewAggregator creates an aggregator with the given histogram bucket width.
// A non-positive width falls back to DefaultBucketWidth.
func NewAggregator(bucketWidth int) *Aggregator {
	if bucketWidth <= 0 {
		bucketWidth = DefaultBucketWidth
	}
	return &Aggregator{
		histogram:   make(map[int]int),
		bucketWidth: bucketWidth,
	}
}

// Observe records one delay estimate.
func (a *Aggregator) Observe(delaySamples int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = append(a.window, float64(delaySamples))
	a.histogram[delaySamples/a.bucketWidth*a.bucketWidth]++
}

// Flush returns the summary of the current window and starts a new one.
// The histogram keeps accumulating across windows.
func (a *Aggregator) Flush() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{Count: len(a.window)}
	if s.Count > 0 {
		s.AverageDelaySamples = stat.Mean(a.window, nil)
	}
	a.window = a.window[:0]
	return s
}

// Histogram returns a copy of the accumulated histogram, keyed by the lower
// bound of each bucket.
func (a *Aggregator) Histogram() map[int]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[int]int, len(a.histogram))
	for bucket, count := range a.histogram {
		out[bucket] = count
	}
	return out
}

// BucketWidth returns the histogram bucket width in samples.
func (a *Aggregator) BucketWidth() int {
	return a.bucketWidth
}

// Run prints one summary line per interval until ctx is cancelled, skipping
// intervals in which nothing was observed. Used by the simulate and measure
// commands.
func Run(ctx context.Context, w io.Writer, a *Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := a.Flush()
			if s.Count == 0 {
				continue
			}
			fmt.Fprintf(w, "delay %.1f samples (averaged over %d computations)\n",
				s.AverageDelaySamples, s.Count)
		}
	}
}

// WriteHistogram renders the accumulated histogram, one bucket per line in
// ascending delay order.
func WriteHistogram(w io.Writer, a *Aggregator) {
	hist := a.Histogram()
	buckets := make([]int, 0, len(hist))
	for bucket := range hist {
		buckets = append(buckets, bucket)
	}
	sort.Ints(buckets)

	for _, bucket := range buckets {
		fmt.Fprintf(w, "%6d..%-6d %d\n", bucket, bucket+a.BucketWidth()-1, hist[bucket])
	}
}
