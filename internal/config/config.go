// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/echolag/echolag/internal/estimator"
)

const (
	AppName       = "echolag"
	ConfigType    = "yaml"
	DefaultConfig = `# echolag configuration

# Estimator settings
max_expected_delay_samples: 2048  # How far back into the played history to search.
                                  # Caps both memory and per-query compute.
comparison_window_width: 1024     # Captured samples compared per query.
scoring: "cross_correlation"      # "cross_correlation" or "absolute_difference"

# Audio device settings (measure command)
device_index: -1        # -1 for default devices
sample_rate: 48000      # Sample rate in Hz, shared by playback and capture
playback_channels: 2    # The mono probe is broadcast to every playback channel
buffer_size: 512        # Frames per audio callback
input_scale: 100.0      # Gain applied to captured samples before estimation

# Simulated channel (simulate and channel commands)
sim_delay_samples: 139  # Ground-truth delay of the synthetic channel
sim_gain: 1.0           # Channel attenuation/amplification
sim_snr: 5.0            # Signal-to-noise ratio; larger = cleaner channel

# Reporting
report_interval: 1s           # How often to print the rolling average
poll_backoff: 100ms           # Wait between queries while the window fills
histogram_bucket_width: 16    # Delay histogram bucket width, in samples

# Output
dump_dir: ""            # When set, write played/captured WAV snapshots here on exit
debug: false            # Enable debug output
`
)

// Settings holds all application configuration
type Settings struct {
	// Estimator settings
	MaxExpectedDelaySamples int    `mapstructure:"max_expected_delay_samples"`
	ComparisonWindowWidth   int    `mapstructure:"comparison_window_width"`
	Scoring                 string `mapstructure:"scoring"`

	// Audio device settings
	DeviceIndex      int     `mapstructure:"device_index"`
	SampleRate       int     `mapstructure:"sample_rate"`
	PlaybackChannels int     `mapstructure:"playback_channels"`
	BufferSize       int     `mapstructure:"buffer_size"`
	InputScale       float64 `mapstructure:"input_scale"`

	// Simulated channel
	SimDelaySamples int     `mapstructure:"sim_delay_samples"`
	SimGain         float64 `mapstructure:"sim_gain"`
	SimSNR          float64 `mapstructure:"sim_snr"`

	// Reporting
	ReportInterval       time.Duration `mapstructure:"report_interval"`
	PollBackoff          time.Duration `mapstructure:"poll_backoff"`
	HistogramBucketWidth int           `mapstructure:"histogram_bucket_width"`

	// Output
	DumpDir string `mapstructure:"dump_dir"`
	Debug   bool   `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/echolag/
func Init() error {
	// Set defaults
	viper.SetDefault("max_expected_delay_samples", 2048)
	viper.SetDefault("comparison_window_width", 1024)
	viper.SetDefault("scoring", "cross_correlation")
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("playback_channels", 2)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("input_scale", 100.0)
	viper.SetDefault("sim_delay_samples", 139)
	viper.SetDefault("sim_gain", 1.0)
	viper.SetDefault("sim_snr", 5.0)
	viper.SetDefault("report_interval", "1s")
	viper.SetDefault("poll_backoff", "100ms")
	viper.SetDefault("histogram_bucket_width", 16)
	viper.SetDefault("dump_dir", "")
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// If no config file exists anywhere, create the default in the XDG dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Estimator settings
	if s.MaxExpectedDelaySamples < 1 {
		errs = append(errs, fmt.Errorf("max_expected_delay_samples must be positive, got %d", s.MaxExpectedDelaySamples))
	}
	if s.ComparisonWindowWidth < 1 {
		errs = append(errs, fmt.Errorf("comparison_window_width must be positive, got %d", s.ComparisonWindowWidth))
	}
	if _, err := estimator.ParseScoring(s.Scoring); err != nil {
		errs = append(errs, fmt.Errorf("scoring must be cross_correlation or absolute_difference, got %q", s.Scoring))
	}

	// Audio device settings
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.PlaybackChannels < 1 || s.PlaybackChannels > 8 {
		errs = append(errs, fmt.Errorf("playback_channels must be between 1 and 8, got %d", s.PlaybackChannels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}
	if s.InputScale == 0 || math.IsNaN(s.InputScale) || math.IsInf(s.InputScale, 0) {
		errs = append(errs, fmt.Errorf("input_scale must be a finite non-zero number, got %v", s.InputScale))
	}

	// Simulated channel
	if s.SimDelaySamples < 0 {
		errs = append(errs, fmt.Errorf("sim_delay_samples must be non-negative, got %d", s.SimDelaySamples))
	}
	if math.IsNaN(s.SimGain) || math.IsInf(s.SimGain, 0) {
		errs = append(errs, fmt.Errorf("sim_gain must be finite, got %v", s.SimGain))
	}
	if s.SimSNR <= 0 || math.IsNaN(s.SimSNR) {
		errs = append(errs, fmt.Errorf("sim_snr must be positive, got %v", s.SimSNR))
	}

	// Reporting
	if s.ReportInterval <= 0 {
		errs = append(errs, fmt.Errorf("report_interval must be positive, got %v", s.ReportInterval))
	}
	if s.PollBackoff <= 0 {
		errs = append(errs, fmt.Errorf("poll_backoff must be positive, got %v", s.PollBackoff))
	}
	if s.HistogramBucketWidth < 1 {
		errs = append(errs, fmt.Errorf("histogram_bucket_width must be positive, got %d", s.HistogramBucketWidth))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
