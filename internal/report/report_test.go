// internal/report/report_test.go
package report

import (
	"math"
	"strings"
	"testing"
)

func TestAggregator_FlushAveragesWindow(t *testing.T) {
	a := NewAggregator(10)

	for _, d := range []int{100, 120, 140} {
		a.Observe(d)
	}

	s := a.Flush()
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if math.Abs(s.AverageDelaySamples-120) > 1e-9 {
		t.Errorf("AverageDelaySamples = %v, want 120", s.AverageDelaySamples)
	}

	// Flush starts a fresh window.
	s = a.Flush()
	if s.Count != 0 {
		t.Errorf("Count after flush = %d, want 0", s.Count)
	}
}

func TestAggregator_HistogramBuckets(t *testing.T) {
	a := NewAggregator(16)

	for _, d := range []int{0, 5, 15, 16, 20, 139, 139} {
		a.Observe(d)
	}

	hist := a.Histogram()
	want := map[int]int{0: 3, 16: 2, 128: 2}
	if len(hist) != len(want) {
		t.Fatalf("histogram has %d buckets, want %d: %v", len(hist), len(want), hist)
	}
	for bucket, count := range want {
		if hist[bucket] != count {
			t.Errorf("bucket %d count = %d, want %d", bucket, hist[bucket], count)
		}
	}

	// The histogram survives window flushes.
	a.Flush()
	if got := a.Histogram()[139/16*16]; got != 2 {
		t.Errorf("bucket count after flush = %d, want 2", got)
	}
}

func TestNewAggregator_DefaultsBucketWidth(t *testing.T) {
	a := NewAggregator(0)
	if a.BucketWidth() != DefaultBucketWidth {
		t.Errorf("BucketWidth() = %d, want %d", a.BucketWidth(), DefaultBucketWidth)
	}
}

func TestWriteHistogram_SortedOutput(t *testing.T) {
	a := NewAggregator(16)
	a.Observe(139)
	a.Observe(3)

	var sb strings.Builder
	WriteHistogram(&sb, a)

	out := sb.String()
	first := strings.Index(out, "0..")
	second := strings.Index(out, "128..")
	if first < 0 || second < 0 || first > second {
		t.Errorf("histogram output not in ascending bucket order:\n%s", out)
	}
}
