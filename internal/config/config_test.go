package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
}

func TestInit_WithDefaults(t *testing.T) {
	resetViper()

	// Use a temp directory to avoid polluting real config
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))

	configDir := filepath.Join(tmpDir, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(DefaultConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"device_index", -1},
		{"sample_rate", 44100},
		{"window_size", 2048},
		{"min_midi", 60},
		{"max_midi", 83},
		{"include_accidentals", false},
		{"prefer_flats", false},
		{"midi_port", -1},
		{"debug", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.expected {
				t.Errorf("viper.Get(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestInit_CreatesConfigIfMissing(t *testing.T) {
	resetViper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))

	// Don't create config - let Init create it
	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, ".config", AppName, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Errorf("Init() did not create config file at %s", configPath)
	}
}

func validSettings() Settings {
	return Settings{
		DeviceIndex: -1,
		SampleRate:  44100,
		WindowSize:  2048,
		MinMidi:     60,
		MaxMidi:     83,
		MidiPort:    -1,
	}
}

func TestValidate_ValidSettings(t *testing.T) {
	s := validSettings()
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Settings)
		wantMsg string
	}{
		{"sample rate too low", func(s *Settings) { s.SampleRate = 4000 }, "sample_rate"},
		{"sample rate too high", func(s *Settings) { s.SampleRate = 400000 }, "sample_rate"},
		{"window too small", func(s *Settings) { s.WindowSize = 128 }, "window_size"},
		{"window too large", func(s *Settings) { s.WindowSize = 32768 }, "window_size"},
		{"window not power of 2", func(s *Settings) { s.WindowSize = 2000 }, "window_size"},
		{"min_midi negative", func(s *Settings) { s.MinMidi = -1 }, "min_midi"},
		{"max_midi too high", func(s *Settings) { s.MaxMidi = 128 }, "max_midi"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			tc.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tc.wantMsg)
			}
		})
	}
}

func TestValidate_InvertedRangeAllowed(t *testing.T) {
	// min > max is surfaced by the session, not config parsing.
	s := validSettings()
	s.MinMidi = 80
	s.MaxMidi = 60
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil for inverted range", err)
	}
}

func TestDataPath(t *testing.T) {
	s := validSettings()
	s.DataDir = "/tmp/notedrill-test"
	got, err := s.DataPath()
	if err != nil {
		t.Fatalf("DataPath() error = %v", err)
	}
	if got != filepath.Join("/tmp/notedrill-test", "notedrill.db") {
		t.Errorf("DataPath() = %q", got)
	}
}

func TestDataPath_DefaultsToXDGData(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s := validSettings()
	got, err := s.DataPath()
	if err != nil {
		t.Fatalf("DataPath() error = %v", err)
	}
	want := filepath.Join(tmpDir, ".local", "share", AppName, "notedrill.db")
	if got != want {
		t.Errorf("DataPath() = %q, want %q", got, want)
	}
}
