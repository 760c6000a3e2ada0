package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// PortConfig names a MIDI port (exact name or case-insensitive substring)
type PortConfig struct {
	Name        string `json:"name,omitempty"`
	AutoConnect bool   `json:"autoConnect"`
}

// BlockConfig sets the processing block size for the live host
type BlockConfig struct {
	SampleRate int `json:"sampleRate"`
	Frames     int `json:"frames"`
}

// Period returns the wall-clock length of one block
func (b BlockConfig) Period() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames) * time.Second / time.Duration(b.SampleRate)
}

// ParamsConfig stores the last parameter values
type ParamsConfig struct {
	Rate       float64 `json:"rate"`
	NoteLength float64 `json:"noteLength"`
}

// ControlsConfig maps hardware CC numbers onto the parameters (0 = off)
type ControlsConfig struct {
	RateCC       uint8 `json:"rateCC,omitempty"`
	NoteLengthCC uint8 `json:"noteLengthCC,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Input            PortConfig     `json:"input"`
	Output           PortConfig     `json:"output"`
	Block            BlockConfig    `json:"block"`
	Params           ParamsConfig   `json:"params"`
	Controls         ControlsConfig `json:"controls"`
	NormalizeNoteOff bool           `json:"normalizeNoteOff"`
	Debug            bool           `json:"debug,omitempty"`
}

// Block size limits applied by Validate
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinFrames     = 16
	MaxFrames     = 8192
)

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Input:  PortConfig{AutoConnect: true},
		Output: PortConfig{AutoConnect: true},
		Block: BlockConfig{
			SampleRate: 48000,
			Frames:     256,
		},
		Params: ParamsConfig{
			Rate:       1,
			NoteLength: 1,
		},
		NormalizeNoteOff: true,
	}
}

// Validate clamps block settings into usable ranges
func (c *Config) Validate() {
	def := DefaultConfig()
	if c.Block.SampleRate == 0 {
		c.Block.SampleRate = def.Block.SampleRate
	}
	if c.Block.Frames == 0 {
		c.Block.Frames = def.Block.Frames
	}
	c.Block.SampleRate = clamp(c.Block.SampleRate, MinSampleRate, MaxSampleRate)
	c.Block.Frames = clamp(c.Block.Frames, MinFrames, MaxFrames)
	if c.Controls.RateCC > 127 {
		c.Controls.RateCC = 0
	}
	if c.Controls.NoteLengthCC > 127 {
		c.Controls.NoteLengthCC = 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "future-arp"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path, or returns defaults if it doesn't exist.
// Fields missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Validate()

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
