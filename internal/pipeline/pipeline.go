// internal/pipeline/pipeline.go
// Package pipeline owns the concurrency discipline around the single shared
// estimator: exclusive access for the sample producers, brief read-locked
// snapshots for consumers that then run the expensive delay scan unlocked.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/echolag/echolag/internal/estimator"
	"github.com/echolag/echolag/internal/simulator"
)

// DefaultPollBackoff is how long a consumer waits before retrying while the
// estimator is still filling its capture window.
const DefaultPollBackoff = 100 * time.Millisecond

// simulatedBatchSize is how many samples the simulated pipeline moves per
// lock acquisition. Small enough to keep lock-hold times negligible, large
// enough that pacing timer overhead stays irrelevant.
const simulatedBatchSize = 256

// Shared wraps the one estimator instance every execution context touches.
// Producers take the write lock per sample; consumers never query through
// the lock, they take a Snapshot instead.
type Shared struct {
	mu  sync.RWMutex
	est *estimator.Estimator
}

// NewShared wraps est for concurrent use. The caller must not touch est
// directly afterwards.
func NewShared(est *estimator.Estimator) *Shared {
	return &Shared{est: est}
}

// NextOutputSample produces and records the next emitted sample.
func (s *Shared) NextOutputSample() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.est.NextOutputSample()
}

// RecordSample records one captured sample.
func (s *Shared) RecordSample(sample float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.est.RecordSample(sample)
}

// Snapshot deep-copies the estimator under a brief read lock and returns the
// private copy. Running the delay scan against the snapshot costs an
// O(capacity) copy up front but keeps the producers from ever waiting on a
// scan in progress.
func (s *Shared) Snapshot() *estimator.Estimator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.est.Clone()
}

// RunSimulated interleaves emission and capture through the synthetic
// channel: every emitted sample is fed to the simulator and whatever comes
// out the far end is recorded as the capture. Samples are produced in
// batches paced to sampleRate. Blocks until ctx is cancelled.
func RunSimulated(ctx context.Context, shared *Shared, sim *simulator.Simulator, sampleRate int) {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	interval := time.Duration(simulatedBatchSize) * time.Second / time.Duration(sampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := 0; i < simulatedBatchSize; i++ {
				out := shared.NextOutputSample()
				shared.RecordSample(sim.Tick(out))
			}
		}
	}
}

// PollDelay repeatedly snapshots the shared estimator, runs the delay scan
// on the snapshot and hands each estimate to fn. While the estimator is
// still filling it backs off for the given duration instead of spinning.
// Blocks until ctx is cancelled.
func PollDelay(ctx context.Context, shared *Shared, backoff time.Duration, fn func(estimator.DelayEstimate)) {
	if backoff <= 0 {
		backoff = DefaultPollBackoff
	}
	for {
		if ctx.Err() != nil {
			return
		}

		snapshot := shared.Snapshot()
		if estimate, ok := snapshot.Delay(); ok {
			fn(estimate)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}
