// internal/wavdump/wavdump.go
// Package wavdump writes estimator buffer snapshots to 16-bit mono WAV
// files for offline inspection.
package wavdump

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/echolag/echolag/internal/estimator"
)

// pcm16Max scales [-1, 1] float samples into the signed 16-bit range.
const pcm16Max = 1<<15 - 1

// WriteSamples writes samples as a 16-bit mono PCM WAV file. Samples
// outside [-1, 1] are clamped.
func WriteSamples(path string, sampleRate int, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * pcm16Max)
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteSnapshot dumps both history buffers of an estimator snapshot into dir
// as played.wav and captured.wav.
func WriteSnapshot(dir string, sampleRate int, snapshot *estimator.Estimator) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	if err := WriteSamples(filepath.Join(dir, "played.wav"), sampleRate, snapshot.PlayedHistory().Values()); err != nil {
		return err
	}
	return WriteSamples(filepath.Join(dir, "captured.wav"), sampleRate, snapshot.CapturedWindow().Values())
}
