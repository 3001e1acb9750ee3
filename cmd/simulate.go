// cmd/simulate.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/echolag/echolag/internal/config"
	"github.com/echolag/echolag/internal/pipeline"
	"github.com/echolag/echolag/internal/recovery"
	"github.com/echolag/echolag/internal/simulator"
)

// delayNudgeSamples is how far the interactive d/f commands move the
// simulated delay per keypress.
const delayNudgeSamples = 5

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Measure delay through a simulated channel with known ground truth",
	Long: `Runs the estimator against a synthetic channel (delay line, gain,
additive noise) instead of real hardware. The channel can be retuned while
running via stdin commands:

  a/s  gain up/down (x1.1 / x0.9)
  m/n  signal-to-noise ratio up/down (x1.1 / x0.9)
  d/f  delay +5 / -5 samples`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Int("sim-delay", 139, "ground-truth delay of the simulated channel in samples")
	simulateCmd.Flags().Float64("gain", 1.0, "simulated channel gain")
	simulateCmd.Flags().Float64("snr", 5.0, "simulated signal-to-noise ratio")

	viper.BindPFlag("sim_delay_samples", simulateCmd.Flags().Lookup("sim-delay"))
	viper.BindPFlag("sim_gain", simulateCmd.Flags().Lookup("gain"))
	viper.BindPFlag("sim_snr", simulateCmd.Flags().Lookup("snr"))

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	shared, err := newSharedEstimator(settings)
	if err != nil {
		return err
	}
	sim := simulator.New(settings.SimDelaySamples,
		float32(settings.SimGain), float32(settings.SimSNR))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("simulating channel: delay %d samples, gain %v, SNR %v (ctrl-c to stop)\n",
		settings.SimDelaySamples, settings.SimGain, settings.SimSNR)

	go func() {
		defer recovery.HandlePanicFunc(stop)
		pipeline.RunSimulated(ctx, shared, sim, settings.SampleRate)
	}()
	go tuneSimulator(ctx, os.Stdin, sim)

	return runReporting(ctx, shared, settings)
}

// tuneSimulator applies one-letter retuning commands read from r until ctx
// is cancelled or r is exhausted.
func tuneSimulator(ctx context.Context, r io.Reader, sim *simulator.Simulator) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch scanner.Text() {
		case "a":
			sim.SetGain(sim.Gain() * 1.1)
			fmt.Printf("gain: %v\n", sim.Gain())
		case "s":
			sim.SetGain(sim.Gain() * 0.9)
			fmt.Printf("gain: %v\n", sim.Gain())
		case "m":
			sim.SetSignalToNoiseRatio(sim.SignalToNoiseRatio() * 1.1)
			fmt.Printf("signal to noise ratio: %v\n", sim.SignalToNoiseRatio())
		case "n":
			sim.SetSignalToNoiseRatio(sim.SignalToNoiseRatio() * 0.9)
			fmt.Printf("signal to noise ratio: %v\n", sim.SignalToNoiseRatio())
		case "d":
			sim.SetDelay(sim.DelaySamples() + delayNudgeSamples)
			fmt.Printf("delay: %d\n", sim.DelaySamples())
		case "f":
			sim.SetDelay(sim.DelaySamples() - delayNudgeSamples)
			fmt.Printf("delay: %d\n", sim.DelaySamples())
		}
	}
}
