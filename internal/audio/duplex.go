// internal/audio/duplex.go
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized  = errors.New("audio round trip not initialized")
	ErrAlreadyRunning  = errors.New("audio round trip already running")
	ErrNotRunning      = errors.New("audio round trip not running")
	ErrChannelMismatch = errors.New("capture must be mono")
	ErrInvalidConfig   = errors.New("invalid audio configuration")
)

// SampleSource produces the next mono sample to play. Called once per
// outgoing frame from the audio thread; must be non-blocking and fast.
type SampleSource func() float32

// SampleSink receives one captured mono sample. Called once per incoming
// frame from the audio thread; must be non-blocking and fast.
type SampleSink func(sample float32)

// Config holds the duplex device configuration.
type Config struct {
	DeviceIndex      int     // -1 for default devices
	SampleRate       uint32  // e.g. 48000, used for both directions
	PlaybackChannels uint32  // the mono probe is broadcast to every channel
	CaptureChannels  uint32  // must be 1
	BufferSize       uint32  // frames per callback
	InputScale       float32 // applied to every captured sample before the sink
}

// DefaultConfig returns sensible defaults for a round-trip measurement.
func DefaultConfig() Config {
	return Config{
		DeviceIndex:      -1,
		SampleRate:       48000,
		PlaybackChannels: 2,
		CaptureChannels:  1,
		BufferSize:       512,
		InputScale:       1.0,
	}
}

// Validate rejects configurations the measurement core cannot work with.
// Sample-rate or channel-count mismatches are an adapter concern and must
// never reach the estimator.
func (c Config) Validate() error {
	var errs []error
	if c.CaptureChannels != 1 {
		errs = append(errs, fmt.Errorf("%w: got %d capture channels", ErrChannelMismatch, c.CaptureChannels))
	}
	if c.PlaybackChannels < 1 {
		errs = append(errs, fmt.Errorf("%w: playback channels must be at least 1, got %d", ErrInvalidConfig, c.PlaybackChannels))
	}
	if c.SampleRate == 0 {
		errs = append(errs, fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig))
	}
	if c.BufferSize == 0 {
		errs = append(errs, fmt.Errorf("%w: buffer size must be positive", ErrInvalidConfig))
	}
	if c.InputScale == 0 || math.IsNaN(float64(c.InputScale)) {
		errs = append(errs, fmt.Errorf("%w: input scale must be a non-zero number", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// RoundTrip drives one full-duplex audio device: the playback side pulls
// probe samples from a SampleSource and the capture side pushes microphone
// samples into a SampleSink.
type RoundTrip struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
	mu      sync.RWMutex

	source SampleSource
	sink   SampleSink
}

// New creates a round-trip adapter feeding from source into sink.
func New(cfg Config, source SampleSource, sink SampleSink) (*RoundTrip, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RoundTrip{
		config: cfg,
		source: source,
		sink:   sink,
	}, nil
}

// Init initializes the audio backend.
func (r *RoundTrip) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	r.ctx = ctx
	return nil
}

// PlaybackDevices returns the available playback devices.
func (r *RoundTrip) PlaybackDevices() ([]malgo.DeviceInfo, error) {
	return r.listDevices(malgo.Playback)
}

// CaptureDevices returns the available capture devices.
func (r *RoundTrip) CaptureDevices() ([]malgo.DeviceInfo, error) {
	return r.listDevices(malgo.Capture)
}

func (r *RoundTrip) listDevices(kind malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := r.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start opens the duplex device and begins streaming. The device stops when
// ctx is cancelled.
func (r *RoundTrip) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if r.ctx == nil {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	r.mu.Unlock()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.SampleRate = r.config.SampleRate
	deviceConfig.PeriodSizeInFrames = r.config.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = r.config.PlaybackChannels
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = r.config.CaptureChannels

	if r.config.DeviceIndex >= 0 {
		playback, err := r.PlaybackDevices()
		if err != nil {
			return err
		}
		if r.config.DeviceIndex >= len(playback) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				r.config.DeviceIndex, len(playback))
		}
		deviceConfig.Playback.DeviceID = playback[r.config.DeviceIndex].ID.Pointer()
	}

	playbackChannels := int(r.config.PlaybackChannels)
	inputScale := r.config.InputScale

	onFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		// Playback: one probe sample per frame, broadcast to all channels.
		frameBytes := playbackChannels * 4
		for frame := 0; (frame+1)*frameBytes <= len(outputSamples); frame++ {
			bits := math.Float32bits(r.source())
			for ch := 0; ch < playbackChannels; ch++ {
				offset := frame*frameBytes + ch*4
				binary.LittleEndian.PutUint32(outputSamples[offset:offset+4], bits)
			}
		}

		// Capture: mono frames, scaled, straight into the sink.
		for offset := 0; offset+4 <= len(inputSamples); offset += 4 {
			sample := math.Float32frombits(binary.LittleEndian.Uint32(inputSamples[offset : offset+4]))
			r.sink(sample * inputScale)
		}
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onFrames})
	if err != nil {
		return fmt.Errorf("init duplex device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start duplex device: %w", err)
	}

	r.mu.Lock()
	r.device = device
	r.running = true
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = r.Stop()
	}()

	return nil
}

// Stop stops the running device.
func (r *RoundTrip) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	if r.device != nil {
		_ = r.device.Stop()
		r.device.Uninit()
		r.device = nil
	}
	r.running = false
	return nil
}

// Close releases all audio resources.
func (r *RoundTrip) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running && r.device != nil {
		_ = r.device.Stop()
		r.device.Uninit()
		r.device = nil
		r.running = false
	}
	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}
	return nil
}

// IsRunning returns true while the device is streaming.
func (r *RoundTrip) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}
