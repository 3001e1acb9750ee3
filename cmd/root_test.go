package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/echolag/echolag/internal/simulator"
)

func resetViperForTest() {
	viper.Reset()
}

func setupTestConfig(t *testing.T, content string) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	configDir := filepath.Join(tmpDir, ".config", "echolag")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"max-delay", "m"},
		{"window", "w"},
		{"scoring", "s"},
		{"device", "d"},
		{"debug", "D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Errorf("flag %q not found", tt.name)
				return
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "echolag" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "echolag")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	for _, name := range []string{"simulate", "measure", "devices", "channel"} {
		t.Run(name, func(t *testing.T) {
			for _, sub := range rootCmd.Commands() {
				if sub.Name() == name {
					return
				}
			}
			t.Errorf("subcommand %q not registered", name)
		})
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetViperForTest()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "echolag") {
		t.Error("help output should contain 'echolag'")
	}
	if !strings.Contains(output, "--max-delay") {
		t.Error("help output should contain '--max-delay'")
	}
	if !strings.Contains(output, "simulate") {
		t.Error("help output should list the simulate subcommand")
	}
}

func TestRootCmd_FlagDefaults(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		defaultValue string
	}{
		{"max-delay", "2048"},
		{"window", "1024"},
		{"scoring", "cross_correlation"},
		{"device", "-1"},
		{"debug", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	resetViperForTest()
	setupTestConfig(t, "sim_delay_samples: 42")

	// Should not panic
	initConfig()

	if viper.GetInt("sim_delay_samples") != 42 {
		t.Errorf("viper.GetInt(sim_delay_samples) = %d, want 42", viper.GetInt("sim_delay_samples"))
	}
}

func TestSimulateCmd_InvalidConfig(t *testing.T) {
	resetViperForTest()
	// Out-of-range sample rate must be rejected before anything starts.
	setupTestConfig(t, "sample_rate: 1000000")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"simulate"})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestTuneSimulator_AdjustsChannel(t *testing.T) {
	sim := simulator.New(10, 1.0, 5.0)

	// a = gain x1.1, n = SNR x0.9, d = delay +5, f twice = delay -10.
	input := strings.NewReader("a\nn\nd\nf\nf\nx\n")
	tuneSimulator(t.Context(), input, sim)

	if got := sim.Gain(); got < 1.09 || got > 1.11 {
		t.Errorf("Gain() = %v, want ~1.1", got)
	}
	if got := sim.SignalToNoiseRatio(); got < 4.49 || got > 4.51 {
		t.Errorf("SignalToNoiseRatio() = %v, want ~4.5", got)
	}
	if got := sim.DelaySamples(); got != 5 {
		t.Errorf("DelaySamples() = %d, want 5 (10 +5 -5 -5)", got)
	}
}
