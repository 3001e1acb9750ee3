// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/echolag/echolag/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "echolag",
	Short: "Audio round-trip delay measurement",
	Long: `echolag measures the delay, in samples, between an emitted audio stream
and the corresponding captured stream, either through real audio hardware
or through a simulated channel with a known ground truth.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("max-delay", "m", 2048, "maximum expected delay in samples")
	rootCmd.PersistentFlags().IntP("window", "w", 1024, "comparison window width in samples")
	rootCmd.PersistentFlags().StringP("scoring", "s", "cross_correlation", "alignment scoring: cross_correlation or absolute_difference")
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().String("dump-dir", "", "write played/captured WAV snapshots here on exit")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	// Bind flags to viper
	viper.BindPFlag("max_expected_delay_samples", rootCmd.PersistentFlags().Lookup("max-delay"))
	viper.BindPFlag("comparison_window_width", rootCmd.PersistentFlags().Lookup("window"))
	viper.BindPFlag("scoring", rootCmd.PersistentFlags().Lookup("scoring"))
	viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("dump_dir", rootCmd.PersistentFlags().Lookup("dump-dir"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
