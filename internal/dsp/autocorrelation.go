// internal/dsp/autocorrelation.go
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidWindowSize indicates window size must be positive
	ErrInvalidWindowSize = errors.New("window size must be positive")
	// ErrWindowTooSmall indicates the window cannot hold one period of the lowest pitch band
	ErrWindowTooSmall = errors.New("window too small for the detectable pitch range")
)

// Pitch search band: C8 down to A0, the span of a full piano keyboard.
const (
	// MaxPitchHz bounds the shortest autocorrelation lag (C8)
	MaxPitchHz = 4186.01
	// MinPitchHz bounds the longest autocorrelation lag (A0)
	MinPitchHz = 27.5
	// SilenceRMS is the gate below which a window carries no usable signal
	SilenceRMS = 0.01
	// MinCorrelation is the qualifying threshold for a candidate lag
	MinCorrelation = 0.9
)

// AnalyzerConfig holds configuration for the pitch analyzer.
// All values should come from the application config file.
type AnalyzerConfig struct {
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// WindowSize is the number of samples per detection window (from config: window_size)
	WindowSize int
}

// Analyzer estimates the fundamental frequency of a sample window using
// time-domain autocorrelation. A window is compared against delayed copies
// of itself across the lag range covering A0 through C8; the first rising
// correlation peak above the qualifying threshold wins. The first-peak
// heuristic is intentionally not a global-maximum search: it matches the
// product's observed detection behavior, including its tendency to slip an
// octave on strongly harmonic input.
type Analyzer struct {
	config AnalyzerConfig
	minLag int // Pre-computed: floor(sampleRate / MaxPitchHz), at least 1
	maxLag int // Pre-computed: ceil(sampleRate / MinPitchHz), capped to the window
}

// NewAnalyzer creates a pitch analyzer with the given configuration.
// Returns an error if the configuration is invalid.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.WindowSize <= 0 {
		return nil, ErrInvalidWindowSize
	}

	minLag := int(math.Floor(cfg.SampleRate / MaxPitchHz))
	if minLag < 1 {
		minLag = 1
	}
	maxLag := int(math.Ceil(cfg.SampleRate / MinPitchHz))
	if maxLag > cfg.WindowSize-1 {
		maxLag = cfg.WindowSize - 1
	}
	if maxLag <= minLag {
		return nil, ErrWindowTooSmall
	}

	return &Analyzer{
		config: cfg,
		minLag: minLag,
		maxLag: maxLag,
	}, nil
}

// DetectOnce analyzes one sample window and returns the detected frequency
// in Hz. ok is false when the window is silent or no lag qualifies; both are
// normal outcomes, not errors. Windows shorter than the configured size are
// treated as silent.
func (a *Analyzer) DetectOnce(window []float32) (freq float64, ok bool) {
	if len(window) < a.config.WindowSize {
		return 0, false
	}
	window = window[:a.config.WindowSize]

	if rms(window) < SilenceRMS {
		return 0, false
	}

	bestLag := -1
	bestCorr := 0.0
	// The first lag has no predecessor; seeding at 1.0 means a qualifying
	// peak always needs a genuine rise first.
	prevCorr := 1.0
	found := false

	for lag := a.minLag; lag < a.maxLag; lag++ {
		corr := correlation(window, lag)

		if corr > MinCorrelation && corr > prevCorr {
			found = true
			if corr > bestCorr {
				bestCorr = corr
				bestLag = lag
			}
		} else if found {
			// Past the first qualifying peak; stop searching.
			break
		}

		prevCorr = corr
	}

	if !found {
		return 0, false
	}
	return a.config.SampleRate / float64(bestLag), true
}

// correlation measures self-similarity at the given lag: 1.0 for a perfectly
// periodic window, lower as the delayed copy diverges.
func correlation(window []float32, lag int) float64 {
	n := len(window) - lag
	if n <= 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(float64(window[i]) - float64(window[i+lag]))
	}
	return 1 - sum/float64(n)
}

// rms computes the root-mean-square level of a window.
func rms(window []float32) float64 {
	sum := 0.0
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(window)))
}

// Config returns the current configuration (for testing and inspection)
func (a *Analyzer) Config() AnalyzerConfig {
	return a.config
}

// LagBounds returns the pre-computed lag search range (for testing)
func (a *Analyzer) LagBounds() (minLag, maxLag int) {
	return a.minLag, a.maxLag
}
