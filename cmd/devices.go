// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/echolag/echolag/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available playback and capture devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	rt, err := audio.New(audio.DefaultConfig(), func() float32 { return 0 }, func(float32) {})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Init(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	playback, err := rt.PlaybackDevices()
	if err != nil {
		return err
	}
	fmt.Println("playback devices:")
	for i, d := range playback {
		fmt.Printf("  %d: %s\n", i, d.Name())
	}

	capture, err := rt.CaptureDevices()
	if err != nil {
		return err
	}
	fmt.Println("capture devices:")
	for i, d := range capture {
		fmt.Printf("  %d: %s\n", i, d.Name())
	}
	return nil
}
