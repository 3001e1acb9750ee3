// internal/simulator/simulator.go
// Package simulator models a synthetic playback-to-capture channel: a delay
// line, a gain stage and additive noise. It stands in for real hardware when
// exercising the delay estimator against a known ground truth.
package simulator

import (
	"math/rand/v2"
	"sync"

	"github.com/echolag/echolag/internal/ring"
)

// minSignalToNoiseRatio is the floor applied to the configured SNR when
// scaling noise. It keeps an SNR at or near zero from blowing the output up
// to infinity.
const minSignalToNoiseRatio = 1e-6

// NoiseFunc draws one noise sample, uniformly distributed in [0, 1).
type NoiseFunc func() float32

// Simulator is a synthetic channel. All methods are safe for concurrent use;
// the tuning setters take effect on the next Tick.
type Simulator struct {
	mu sync.Mutex

	// delayLine is nil while the configured delay is zero.
	delayLine *ring.Buffer[float32]
	gain      float32
	snr       float32
	noise     NoiseFunc
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithNoise replaces the default noise source. Tests use this to make the
// channel deterministic.
func WithNoise(n NoiseFunc) Option {
	return func(s *Simulator) { s.noise = n }
}

// New creates a channel that delays its input by delaySamples, scales it by
// gain and adds noise scaled down by signalToNoiseRatio. A delay of zero (or
// less) means the input passes straight through the gain and noise stages.
// An infinite signalToNoiseRatio models a noiseless channel.
func New(delaySamples int, gain, signalToNoiseRatio float32, opts ...Option) *Simulator {
	s := &Simulator{
		gain:  gain,
		snr:   signalToNoiseRatio,
		noise: rand.Float32,
	}
	if delaySamples > 0 {
		// Capacity is positive here, construction cannot fail.
		s.delayLine, _ = ring.New[float32](delaySamples)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick feeds one emitted sample into the channel and returns what the
// capture side hears for it.
func (s *Simulator) Tick(in float32) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	delayed := in
	if s.delayLine != nil {
		// The evicted entry is the sample from delaySamples ticks ago.
		// While the line is still warming up there is nothing to hear yet,
		// so the channel produces silence.
		evicted, wasFull := s.delayLine.Push(in)
		if wasFull {
			delayed = evicted
		} else {
			delayed = 0
		}
	}

	snr := s.snr
	if snr < minSignalToNoiseRatio {
		snr = minSignalToNoiseRatio
	}
	noise := s.noise() / snr

	return delayed*s.gain + noise
}

// DelaySamples returns the currently configured delay.
func (s *Simulator) DelaySamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delayLine == nil {
		return 0
	}
	return s.delayLine.Cap()
}

// SetDelay reconfigures the delay line. Growing preserves all buffered
// samples; shrinking discards the oldest until the new capacity holds.
// A delay of zero (or less) drops the line entirely.
func (s *Simulator) SetDelay(delaySamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delaySamples <= 0 {
		s.delayLine = nil
		return
	}
	if s.delayLine == nil {
		s.delayLine, _ = ring.New[float32](delaySamples)
		return
	}
	// Capacity is positive here, Resize cannot fail.
	_ = s.delayLine.Resize(delaySamples)
}

// Gain returns the current gain factor.
func (s *Simulator) Gain() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

// SetGain sets the gain factor applied to the delayed sample.
func (s *Simulator) SetGain(gain float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gain = gain
}

// SignalToNoiseRatio returns the current SNR.
func (s *Simulator) SignalToNoiseRatio() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snr
}

// SetSignalToNoiseRatio sets the SNR used to scale the additive noise.
func (s *Simulator) SetSignalToNoiseRatio(snr float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snr = snr
}
