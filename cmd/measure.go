// cmd/measure.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/echolag/echolag/internal/audio"
	"github.com/echolag/echolag/internal/config"
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Measure round-trip delay through real audio hardware",
	Long: `Plays a pseudo-random probe signal through the default (or selected)
output device, records the microphone input, and continuously reports the
estimated round-trip delay in samples.`,
	RunE: runMeasure,
}

func init() {
	measureCmd.Flags().Int("rate", 48000, "sample rate in Hz for playback and capture")
	measureCmd.Flags().Float64("input-scale", 100.0, "gain applied to captured samples")

	viper.BindPFlag("sample_rate", measureCmd.Flags().Lookup("rate"))
	viper.BindPFlag("input_scale", measureCmd.Flags().Lookup("input-scale"))

	rootCmd.AddCommand(measureCmd)
}

func runMeasure(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	shared, err := newSharedEstimator(settings)
	if err != nil {
		return err
	}

	audioCfg := audio.Config{
		DeviceIndex:      settings.DeviceIndex,
		SampleRate:       uint32(settings.SampleRate),
		PlaybackChannels: uint32(settings.PlaybackChannels),
		CaptureChannels:  1,
		BufferSize:       uint32(settings.BufferSize),
		InputScale:       float32(settings.InputScale),
	}
	rt, err := audio.New(audioCfg, shared.NextOutputSample, shared.RecordSample)
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer rt.Close()

	if err := rt.Init(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if settings.Debug {
		listDevices(rt)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	fmt.Printf("measuring round-trip delay at %d Hz (ctrl-c to stop)\n", settings.SampleRate)

	return runReporting(ctx, shared, settings)
}

func listDevices(rt *audio.RoundTrip) {
	if playback, err := rt.PlaybackDevices(); err == nil {
		fmt.Println("playback devices:")
		for i, d := range playback {
			fmt.Printf("  %d: %s\n", i, d.Name())
		}
	}
	if capture, err := rt.CaptureDevices(); err == nil {
		fmt.Println("capture devices:")
		for i, d := range capture {
			fmt.Printf("  %d: %s\n", i, d.Name())
		}
	}
}
