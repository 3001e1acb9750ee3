// internal/estimator/estimator.go
// Package estimator measures the delay between an emitted sample stream and
// its captured echo by scanning phase shifts of the capture window across a
// rolling history of emitted samples.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tphakala/simd/f32"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/echolag/echolag/internal/ring"
)

var (
	// ErrInvalidMaxDelay indicates the maximum expected delay must be positive
	ErrInvalidMaxDelay = errors.New("maximum expected delay must be positive")
	// ErrInvalidWindowWidth indicates the comparison window width must be positive
	ErrInvalidWindowWidth = errors.New("comparison window width must be positive")
	// ErrUnknownScoring indicates an unrecognized scoring strategy name
	ErrUnknownScoring = errors.New("unknown scoring strategy")
)

// Scoring selects how a candidate alignment is scored against the capture window.
type Scoring int

const (
	// ScoreCrossCorrelation scores an alignment by the sum of pointwise
	// products; higher is better. This is the default.
	ScoreCrossCorrelation Scoring = iota
	// ScoreAbsoluteDifference scores an alignment by the sum of absolute
	// pointwise differences; lower is better.
	ScoreAbsoluteDifference
)

// ParseScoring maps a config string to a Scoring value.
func ParseScoring(name string) (Scoring, error) {
	switch name {
	case "cross_correlation":
		return ScoreCrossCorrelation, nil
	case "absolute_difference":
		return ScoreAbsoluteDifference, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScoring, name)
	}
}

// String returns the config-file name of the strategy.
func (s Scoring) String() string {
	switch s {
	case ScoreCrossCorrelation:
		return "cross_correlation"
	case ScoreAbsoluteDifference:
		return "absolute_difference"
	default:
		return "unknown"
	}
}

// ProbeFunc produces the next sample to emit. It must be cheap; it runs on
// the audio output path.
type ProbeFunc func() float32

// NormalProbe returns a probe drawing from a normal distribution with the
// given standard deviation, clamped to the [-1, 1] device range. With sigma
// 0.5 roughly 5% of draws land outside the range and are clamped.
// A nil src uses the shared global source.
func NormalProbe(sigma float64, src rand.Source) ProbeFunc {
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	return func() float32 {
		s := dist.Rand()
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		return float32(s)
	}
}

// DelayEstimate is the result of one delay query.
type DelayEstimate struct {
	// DelaySamples is the estimated delay, in samples, of the captured
	// stream relative to the emitted stream.
	DelaySamples int
	// Scores holds the per-candidate fit score in increasing shift order.
	Scores []float32
}

// Estimator owns the played-sample history and the captured comparison
// window. It is not safe for concurrent use on its own; see the pipeline
// package for the shared, lock-guarded wrapper.
type Estimator struct {
	played   *ring.Buffer[float32]
	captured *ring.Buffer[float32]
	scoring  Scoring
	probe    ProbeFunc
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithScoring selects the alignment scoring strategy.
func WithScoring(s Scoring) Option {
	return func(e *Estimator) { e.scoring = s }
}

// WithProbe replaces the default probe signal generator.
func WithProbe(p ProbeFunc) Option {
	return func(e *Estimator) { e.probe = p }
}

// New creates an Estimator. The played history holds
// maxExpectedDelaySamples + comparisonWindowWidth samples so that a capture
// delayed by up to maxExpectedDelaySamples still overlaps a full window of
// played history. Both parameters must be positive.
func New(maxExpectedDelaySamples, comparisonWindowWidth int, opts ...Option) (*Estimator, error) {
	if maxExpectedDelaySamples <= 0 {
		return nil, ErrInvalidMaxDelay
	}
	if comparisonWindowWidth <= 0 {
		return nil, ErrInvalidWindowWidth
	}

	played, err := ring.New[float32](maxExpectedDelaySamples + comparisonWindowWidth)
	if err != nil {
		return nil, fmt.Errorf("played history: %w", err)
	}
	captured, err := ring.New[float32](comparisonWindowWidth)
	if err != nil {
		return nil, fmt.Errorf("captured window: %w", err)
	}

	e := &Estimator{
		played:   played,
		captured: captured,
		scoring:  ScoreCrossCorrelation,
		probe:    NormalProbe(0.5, nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NextOutputSample draws the next probe sample, records it in the played
// history and returns it. O(1); safe to call from a cadence-sensitive
// output path.
func (e *Estimator) NextOutputSample() float32 {
	sample := e.probe()
	e.played.Push(sample)
	return sample
}

// RecordSample appends one captured sample to the comparison window. O(1).
func (e *Estimator) RecordSample(sample float32) {
	e.captured.Push(sample)
}

// Ready reports whether the captured window has filled. Once true it stays
// true for the life of the instance.
func (e *Estimator) Ready() bool {
	return e.captured.Full()
}

// Delay scans every phase shift of the capture window across the played
// history and returns the best-fitting delay. The second return value is
// false while the capture window has not yet filled.
//
// The scan costs O(maxShift * windowWidth); run it on a Clone, never while
// holding a lock shared with the sample producers.
func (e *Estimator) Delay() (DelayEstimate, bool) {
	if !e.captured.Full() {
		// Not enough captured samples accumulated yet.
		return DelayEstimate{}, false
	}

	played := e.played.Values()
	captured := e.captured.Values()

	// The +1 covers the zero-delay candidate when the histories are the
	// same length. Do not "simplify" it away; the zero-delay recovery test
	// pins this down.
	maxShift := max(len(played)-len(captured), 0) + 1

	scores := make([]float32, 0, maxShift)
	bestShift := 0
	bestScore := float32(math.Inf(-1))
	if e.scoring == ScoreAbsoluteDifference {
		bestScore = float32(math.Inf(1))
	}

	for shift := 0; shift < maxShift; shift++ {
		overlap := min(len(captured), len(played)-shift)
		window := captured[:overlap]
		history := played[shift : shift+overlap]

		var score float32
		switch e.scoring {
		case ScoreAbsoluteDifference:
			score = sumAbsoluteDifference(history, window)
			if score < bestScore {
				bestScore = score
				bestShift = shift
			}
		default:
			// Slices are equal length, so the unchecked dot product is safe.
			score = f32.DotProductUnsafe(history, window)
			if score > bestScore {
				bestScore = score
				bestShift = shift
			}
		}
		scores = append(scores, score)
	}

	return DelayEstimate{
		// Undo the +1 applied to maxShift above.
		DelaySamples: maxShift - bestShift - 1,
		Scores:       scores,
	}, true
}

// Clone returns a deep copy of the estimator, the snapshot primitive used by
// consumers that run the delay scan without holding the shared lock.
func (e *Estimator) Clone() *Estimator {
	return &Estimator{
		played:   e.played.Clone(),
		captured: e.captured.Clone(),
		scoring:  e.scoring,
		probe:    e.probe,
	}
}

// PlayedHistory exposes the played-sample buffer for read-only adapters
// (visualization, snapshot dumps).
func (e *Estimator) PlayedHistory() *ring.Buffer[float32] {
	return e.played
}

// CapturedWindow exposes the captured-sample buffer for read-only adapters.
func (e *Estimator) CapturedWindow() *ring.Buffer[float32] {
	return e.captured
}

// MaxExpectedDelaySamples returns the configured upper bound on measurable delay.
func (e *Estimator) MaxExpectedDelaySamples() int {
	return e.played.Cap() - e.captured.Cap()
}

func sumAbsoluteDifference(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}
