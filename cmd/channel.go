// cmd/channel.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/echolag/echolag/internal/config"
	"github.com/echolag/echolag/internal/simulator"
)

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Feed samples through the simulated channel interactively",
	Long: `Reads one sample per line from stdin, pushes it through the simulated
channel (delay, gain, noise) and prints what comes out the far end. Useful
for poking at the channel model by hand.`,
	RunE: runChannel,
}

func init() {
	rootCmd.AddCommand(channelCmd)
}

func runChannel(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sim := simulator.New(settings.SimDelaySamples,
		float32(settings.SimGain), float32(settings.SimSNR))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("< ")
		if !scanner.Scan() {
			break
		}
		sample, err := strconv.ParseFloat(scanner.Text(), 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "not a number: %q\n", scanner.Text())
			continue
		}
		fmt.Printf("> %v\n\n", sim.Tick(float32(sample)))
	}
	return scanner.Err()
}
