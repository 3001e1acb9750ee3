// internal/simulator/simulator_test.go
package simulator

import (
	"math"
	"testing"
)

// silentNoise makes the channel deterministic.
func silentNoise() float32 { return 0 }

// constantNoise returns a noise source that always draws v.
func constantNoise(v float32) NoiseFunc {
	return func() float32 { return v }
}

func TestTick_ZeroDelayPassThrough(t *testing.T) {
	sim := New(0, 0.5, 2.0, WithNoise(constantNoise(0.8)))

	inputs := []float32{1.0, -0.5, 0.25, 0.0}
	for i, in := range inputs {
		got := sim.Tick(in)
		want := in*0.5 + 0.8/2.0
		if math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("tick %d: Tick(%v) = %v, want %v (no buffering lag)", i, in, got, want)
		}
	}
}

func TestTick_WarmupProducesSilence(t *testing.T) {
	const delay = 4
	sim := New(delay, 1.0, float32(math.Inf(1)), WithNoise(silentNoise))

	for i := 0; i < delay; i++ {
		if got := sim.Tick(float32(i + 1)); got != 0 {
			t.Errorf("tick %d: Tick = %v, want 0 during channel warm-up", i, got)
		}
	}

	// From here on every tick echoes the input from `delay` ticks ago.
	for i := 0; i < 8; i++ {
		in := float32(delay + i + 1)
		want := float32(i + 1)
		if got := sim.Tick(in); got != want {
			t.Errorf("tick %d after warm-up: Tick(%v) = %v, want %v", i, in, got, want)
		}
	}
}

func TestTick_AppliesGain(t *testing.T) {
	sim := New(1, 0.25, float32(math.Inf(1)), WithNoise(silentNoise))

	sim.Tick(2.0) // warm-up
	if got := sim.Tick(0); got != 0.5 {
		t.Errorf("Tick = %v, want 0.5 (2.0 delayed by one and scaled by 0.25)", got)
	}
}

func TestTick_ZeroSNRDoesNotExplode(t *testing.T) {
	sim := New(0, 1.0, 0, WithNoise(constantNoise(0.5)))

	for i := 0; i < 16; i++ {
		got := sim.Tick(0.1)
		if math.IsInf(float64(got), 0) || math.IsNaN(float64(got)) {
			t.Fatalf("tick %d: Tick = %v with SNR 0, want a finite (saturated) value", i, got)
		}
	}
}

func TestTick_InfiniteSNRIsNoiseless(t *testing.T) {
	sim := New(0, 1.0, float32(math.Inf(1)), WithNoise(constantNoise(0.9)))

	if got := sim.Tick(0.3); got != 0.3 {
		t.Errorf("Tick(0.3) = %v, want exactly 0.3 with infinite SNR", got)
	}
}

func TestSetDelay_GrowPreservesBufferedSamples(t *testing.T) {
	sim := New(2, 1.0, float32(math.Inf(1)), WithNoise(silentNoise))

	sim.Tick(1)
	sim.Tick(2)
	sim.SetDelay(4)
	if got := sim.DelaySamples(); got != 4 {
		t.Fatalf("DelaySamples() = %d, want 4", got)
	}

	// Two buffered samples survive the grow; the line needs two more pushes
	// before it is full again, then the oldest preserved sample comes out.
	if got := sim.Tick(3); got != 0 {
		t.Errorf("Tick(3) = %v, want 0 while the grown line refills", got)
	}
	if got := sim.Tick(4); got != 0 {
		t.Errorf("Tick(4) = %v, want 0 while the grown line refills", got)
	}
	if got := sim.Tick(5); got != 1 {
		t.Errorf("Tick(5) = %v, want 1 (oldest preserved sample)", got)
	}
}

func TestSetDelay_ShrinkDiscardsOldest(t *testing.T) {
	sim := New(5, 1.0, float32(math.Inf(1)), WithNoise(silentNoise))

	for i := 1; i <= 5; i++ {
		sim.Tick(float32(i))
	}

	// Shrinking from 5 to 2 discards the three oldest (1, 2, 3); the next
	// tick must already reflect the shorter delay.
	sim.SetDelay(2)
	if got := sim.DelaySamples(); got != 2 {
		t.Fatalf("DelaySamples() = %d, want 2", got)
	}
	if got := sim.Tick(6); got != 4 {
		t.Errorf("Tick(6) = %v, want 4 (two ticks ago under the new delay)", got)
	}
	if got := sim.Tick(7); got != 5 {
		t.Errorf("Tick(7) = %v, want 5", got)
	}
}

func TestSetDelay_ZeroDropsTheLine(t *testing.T) {
	sim := New(3, 1.0, float32(math.Inf(1)), WithNoise(silentNoise))

	sim.Tick(1)
	sim.SetDelay(0)
	if got := sim.DelaySamples(); got != 0 {
		t.Fatalf("DelaySamples() = %d, want 0", got)
	}
	if got := sim.Tick(0.7); got != 0.7 {
		t.Errorf("Tick(0.7) = %v, want 0.7 after dropping the delay line", got)
	}

	// And back again: a fresh line warms up from silence.
	sim.SetDelay(2)
	if got := sim.Tick(0.1); got != 0 {
		t.Errorf("Tick = %v, want 0 while the recreated line warms up", got)
	}
}

func TestSettersAreLive(t *testing.T) {
	sim := New(0, 1.0, float32(math.Inf(1)), WithNoise(constantNoise(0.4)))

	if got := sim.Tick(1); got != 1 {
		t.Fatalf("Tick(1) = %v, want 1", got)
	}

	sim.SetGain(2)
	sim.SetSignalToNoiseRatio(4)
	got, want := sim.Tick(1), float32(2+0.1)
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("Tick(1) = %v, want %v after retuning gain and SNR", got, want)
	}
	if sim.Gain() != 2 {
		t.Errorf("Gain() = %v, want 2", sim.Gain())
	}
	if sim.SignalToNoiseRatio() != 4 {
		t.Errorf("SignalToNoiseRatio() = %v, want 4", sim.SignalToNoiseRatio())
	}
}
