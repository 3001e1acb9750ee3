// cmd/session.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/echolag/echolag/internal/config"
	"github.com/echolag/echolag/internal/estimator"
	"github.com/echolag/echolag/internal/pipeline"
	"github.com/echolag/echolag/internal/report"
	"github.com/echolag/echolag/internal/wavdump"
)

// newSharedEstimator builds the one estimator instance of a measurement
// session from the validated settings.
func newSharedEstimator(s *config.Settings) (*pipeline.Shared, error) {
	scoring, err := estimator.ParseScoring(s.Scoring)
	if err != nil {
		return nil, err
	}
	est, err := estimator.New(s.MaxExpectedDelaySamples, s.ComparisonWindowWidth,
		estimator.WithScoring(scoring))
	if err != nil {
		return nil, fmt.Errorf("create estimator: %w", err)
	}
	return pipeline.NewShared(est), nil
}

// runReporting runs the delay-polling consumer and the periodic console
// reporter until ctx is cancelled, then prints the accumulated histogram
// and, when configured, dumps the final buffer snapshot as WAV files.
func runReporting(ctx context.Context, shared *pipeline.Shared, s *config.Settings) error {
	agg := report.NewAggregator(s.HistogramBucketWidth)

	go pipeline.PollDelay(ctx, shared, s.PollBackoff, func(e estimator.DelayEstimate) {
		agg.Observe(e.DelaySamples)
	})

	report.Run(ctx, os.Stdout, agg, s.ReportInterval)

	if final := agg.Flush(); final.Count > 0 {
		fmt.Printf("delay %.1f samples (averaged over %d computations)\n",
			final.AverageDelaySamples, final.Count)
	}
	fmt.Println("delay histogram (samples):")
	report.WriteHistogram(os.Stdout, agg)

	if s.DumpDir != "" {
		if err := wavdump.WriteSnapshot(s.DumpDir, s.SampleRate, shared.Snapshot()); err != nil {
			return fmt.Errorf("dump snapshot: %w", err)
		}
		fmt.Printf("wrote buffer snapshots to %s\n", s.DumpDir)
	}
	return nil
}
