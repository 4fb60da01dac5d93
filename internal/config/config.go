// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "notedrill"
	ConfigType    = "yaml"
	DefaultConfig = `# notedrill Configuration

# Audio input
device_index: -1        # -1 for default capture device
sample_rate: 44100      # Audio sample rate in Hz
window_size: 2048       # Samples per pitch-detection window

# Practice range
min_midi: 60            # Lowest practice note (60 = middle C)
max_midi: 83            # Highest practice note (83 = B5)
include_accidentals: false # Drill black-key notes too
prefer_flats: false     # Spell accidentals as flats instead of sharps

# MIDI input
midi_port: -1           # MIDI input port index (-1 for first available)

# Storage
data_dir: ""            # Stats database directory ("" = XDG data dir)

# Output
debug: false            # Enable debug output
`
)

// Settings holds all application configuration
type Settings struct {
	// Audio input
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	WindowSize  int     `mapstructure:"window_size"`

	// Practice range
	MinMidi            int  `mapstructure:"min_midi"`
	MaxMidi            int  `mapstructure:"max_midi"`
	IncludeAccidentals bool `mapstructure:"include_accidentals"`
	PreferFlats        bool `mapstructure:"prefer_flats"`

	// MIDI input
	MidiPort int `mapstructure:"midi_port"`

	// Storage
	DataDir string `mapstructure:"data_dir"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/notedrill/
func Init() error {
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 44100)
	viper.SetDefault("window_size", 2048)
	viper.SetDefault("min_midi", 60)
	viper.SetDefault("max_midi", 83)
	viper.SetDefault("include_accidentals", false)
	viper.SetDefault("prefer_flats", false)
	viper.SetDefault("midi_port", -1)
	viper.SetDefault("data_dir", "")
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

	// If no config exists anywhere, create the default in the XDG dir
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

// DataPath resolves the stats database location, defaulting to the XDG
// data directory when data_dir is unset.
func (s *Settings) DataPath() (string, error) {
	dir := s.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", AppName)
	}
	return filepath.Join(dir, "notedrill.db"), nil
}

// Validate checks that all settings are within acceptable ranges.
// The practice range is deliberately not checked for min > max here: an
// inverted range is a configuration error the session surfaces when it
// refuses to build a candidate set, not a reason to fail config parsing
// of unrelated commands.
func (s *Settings) Validate() error {
	var errs []error

	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.WindowSize < 256 || s.WindowSize > 16384 {
		errs = append(errs, fmt.Errorf("window_size must be between 256 and 16384, got %d", s.WindowSize))
	}
	// Power of 2 keeps window timing aligned with common device period sizes
	if s.WindowSize&(s.WindowSize-1) != 0 {
		errs = append(errs, fmt.Errorf("window_size should be a power of 2, got %d", s.WindowSize))
	}

	if s.MinMidi < 0 || s.MinMidi > 127 {
		errs = append(errs, fmt.Errorf("min_midi must be between 0 and 127, got %d", s.MinMidi))
	}
	if s.MaxMidi < 0 || s.MaxMidi > 127 {
		errs = append(errs, fmt.Errorf("max_midi must be between 0 and 127, got %d", s.MaxMidi))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
