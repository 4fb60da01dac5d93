// internal/dsp/autocorrelation_test.go
package dsp

import (
	"math"
	"testing"
)

// Test configuration constants - these mirror config file values
const (
	testSampleRate = 44100.0
	testWindowSize = 2048
)

// generateSineWave creates a sine wave at the specified frequency
func generateSineWave(frequency, sampleRate float64, numSamples int, amplitude float32) []float32 {
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / sampleRate
		samples[i] = amplitude * float32(math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}

// generateSilence creates a buffer of silence (zeros)
func generateSilence(numSamples int) []float32 {
	return make([]float32, numSamples)
}

func testAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(AnalyzerConfig{SampleRate: testSampleRate, WindowSize: testWindowSize})
	if err != nil {
		t.Fatalf("NewAnalyzer failed with valid config: %v", err)
	}
	return a
}

func TestNewAnalyzer_ValidConfig(t *testing.T) {
	a := testAnalyzer(t)

	if a.Config().SampleRate != testSampleRate {
		t.Errorf("SampleRate mismatch: got %v, want %v", a.Config().SampleRate, testSampleRate)
	}
	if a.Config().WindowSize != testWindowSize {
		t.Errorf("WindowSize mismatch: got %v, want %v", a.Config().WindowSize, testWindowSize)
	}
}

func TestNewAnalyzer_InvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{0, -44100} {
		_, err := NewAnalyzer(AnalyzerConfig{SampleRate: rate, WindowSize: testWindowSize})
		if err != ErrInvalidSampleRate {
			t.Errorf("SampleRate %v: expected ErrInvalidSampleRate, got: %v", rate, err)
		}
	}
}

func TestNewAnalyzer_InvalidWindowSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := NewAnalyzer(AnalyzerConfig{SampleRate: testSampleRate, WindowSize: size})
		if err != ErrInvalidWindowSize {
			t.Errorf("WindowSize %d: expected ErrInvalidWindowSize, got: %v", size, err)
		}
	}
}

func TestNewAnalyzer_WindowTooSmall(t *testing.T) {
	// At 48 kHz the shortest lag is 11 samples; an 8-sample window cannot
	// hold any usable lag range.
	_, err := NewAnalyzer(AnalyzerConfig{SampleRate: 48000, WindowSize: 8})
	if err != ErrWindowTooSmall {
		t.Errorf("expected ErrWindowTooSmall, got: %v", err)
	}
}

func TestAnalyzer_LagBounds(t *testing.T) {
	a := testAnalyzer(t)

	minLag, maxLag := a.LagBounds()
	if want := int(math.Floor(testSampleRate / MaxPitchHz)); minLag != want {
		t.Errorf("minLag = %d, want %d", minLag, want)
	}
	if want := int(math.Ceil(testSampleRate / MinPitchHz)); maxLag != want {
		t.Errorf("maxLag = %d, want %d", maxLag, want)
	}
}

func TestAnalyzer_LagBoundsCappedByWindow(t *testing.T) {
	a, err := NewAnalyzer(AnalyzerConfig{SampleRate: testSampleRate, WindowSize: 512})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	if _, maxLag := a.LagBounds(); maxLag != 511 {
		t.Errorf("maxLag = %d, want 511 (window cap)", maxLag)
	}
}

func TestDetectOnce_SilenceGate(t *testing.T) {
	a := testAnalyzer(t)

	if freq, ok := a.DetectOnce(generateSilence(testWindowSize)); ok {
		t.Errorf("DetectOnce(silence) = (%v, true), want no signal", freq)
	}
}

func TestDetectOnce_QuietSignalGated(t *testing.T) {
	a := testAnalyzer(t)

	// Amplitude 0.005 gives an RMS around 0.0035, below the gate.
	window := generateSineWave(440, testSampleRate, testWindowSize, 0.005)
	if freq, ok := a.DetectOnce(window); ok {
		t.Errorf("DetectOnce(quiet signal) = (%v, true), want no signal", freq)
	}
}

func TestDetectOnce_ShortWindow(t *testing.T) {
	a := testAnalyzer(t)

	window := generateSineWave(440, testSampleRate, testWindowSize/2, 0.8)
	if freq, ok := a.DetectOnce(window); ok {
		t.Errorf("DetectOnce(short window) = (%v, true), want no signal", freq)
	}
}

func TestDetectOnce_SineWaves(t *testing.T) {
	a := testAnalyzer(t)

	testCases := []struct {
		name string
		freq float64
	}{
		{"A4", 440},
		{"A3", 220},
		{"A5", 880},
		{"middle C", 261.63},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			window := generateSineWave(tc.freq, testSampleRate, testWindowSize, 0.8)
			got, ok := a.DetectOnce(window)
			if !ok {
				t.Fatalf("DetectOnce(%v Hz sine) found no pitch", tc.freq)
			}
			if math.Abs(got-tc.freq) > tc.freq*0.01 {
				t.Errorf("DetectOnce(%v Hz sine) = %v Hz, want within 1%%", tc.freq, got)
			}
		})
	}
}

func TestDetectOnce_AmplitudeIndependent(t *testing.T) {
	a := testAnalyzer(t)

	for _, amp := range []float32{0.1, 0.5, 1.0} {
		window := generateSineWave(440, testSampleRate, testWindowSize, amp)
		got, ok := a.DetectOnce(window)
		if !ok {
			t.Errorf("amplitude %v: no pitch found", amp)
			continue
		}
		if math.Abs(got-440) > 4.4 {
			t.Errorf("amplitude %v: freq = %v, want within 1%% of 440", amp, got)
		}
	}
}

func TestDetectOnce_NoiseFindsNoPeak(t *testing.T) {
	a := testAnalyzer(t)

	// Deterministic pseudo-noise: loud enough to pass the RMS gate, but
	// aperiodic, so no lag correlates above the threshold.
	window := make([]float32, testWindowSize)
	for i := range window {
		window[i] = float32(math.Sin(float64(i*i)*12.9898)) * 0.5
	}
	if freq, ok := a.DetectOnce(window); ok {
		t.Errorf("DetectOnce(noise) = (%v, true), want no qualifying peak", freq)
	}
}

func TestCorrelation_PerfectPeriodicity(t *testing.T) {
	// A window that repeats exactly at the lag correlates to 1.0.
	window := make([]float32, 64)
	for i := range window {
		window[i] = float32(i % 16)
	}
	if got := correlation(window, 16); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("correlation(periodic, 16) = %v, want 1.0", got)
	}
}

func TestRMS(t *testing.T) {
	testCases := []struct {
		name   string
		window []float32
		want   float64
	}{
		{"silence", []float32{0, 0, 0, 0}, 0},
		{"unit square", []float32{1, -1, 1, -1}, 1},
		{"half square", []float32{0.5, -0.5, 0.5, -0.5}, 0.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rms(tc.window); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("rms() = %v, want %v", got, tc.want)
			}
		})
	}
}
