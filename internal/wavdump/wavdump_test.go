// internal/wavdump/wavdump_test.go
package wavdump

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/echolag/echolag/internal/estimator"
)

func TestWriteSamples_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.wav")
	samples := []float32{0, 0.5, -0.5, 1.0, -1.0, 2.0, -2.0} // last two must clamp

	if err := WriteSamples(path, 48000, samples); err != nil {
		t.Fatalf("WriteSamples failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("written file is not a valid WAV")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode written file: %v", err)
	}

	if buf.Format.NumChannels != 1 {
		t.Errorf("NumChannels = %d, want 1", buf.Format.NumChannels)
	}
	if buf.Format.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", buf.Format.SampleRate)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}

	want := []float32{0, 0.5, -0.5, 1.0, -1.0, 1.0, -1.0}
	for i, w := range want {
		got := float32(buf.Data[i]) / pcm16Max
		if math.Abs(float64(got-w)) > 1.0/pcm16Max {
			t.Errorf("sample %d = %v, want %v", i, got, w)
		}
	}
}

func TestWriteSnapshot_CreatesBothFiles(t *testing.T) {
	e, err := estimator.New(8, 4)
	if err != nil {
		t.Fatalf("estimator.New failed: %v", err)
	}
	for i := 0; i < 12; i++ {
		e.NextOutputSample()
		e.RecordSample(0.1)
	}

	dir := filepath.Join(t.TempDir(), "dump")
	if err := WriteSnapshot(dir, 44100, e.Clone()); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	for _, name := range []string{"played.wav", "captured.wav"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
