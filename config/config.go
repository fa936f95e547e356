package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MIDIConfig maps the panel onto a MIDI controller
type MIDIConfig struct {
	InPort       string `json:"inPort,omitempty"`  // substring of the input port name
	OutPort      string `json:"outPort,omitempty"` // substring of the output port name
	GateNote     int    `json:"gateNote"`
	ClockDivider int    `json:"clockDivider,omitempty"` // 0 disables clock-driven gates
	StepNoteBase int    `json:"stepNoteBase"`
	EncoderCC    int    `json:"encoderCC"`
	RecordCC     int    `json:"recordCC"`
	PlaybackCC   int    `json:"playbackCC"`
	SaveCC       int    `json:"saveCC"`
	ModeCC       int    `json:"modeCC"`
	OutChannel   int    `json:"outChannel,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // GIMP .gpl file; built-in palette if empty
}

// Config is the main configuration structure
type Config struct {
	FlashImage string     `json:"flashImage,omitempty"` // emulated flash backing file
	BusyPolls  int        `json:"busyPolls,omitempty"`  // emulated program/erase latency in status polls
	MIDI       MIDIConfig `json:"midi"`
	UI         UIConfig   `json:"ui,omitempty"`
	Debug      bool       `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		FlashImage: filepath.Join(dir, "flash.bin"),
		BusyPolls:  4,
		MIDI: MIDIConfig{
			GateNote:     60,
			StepNoteBase: 36,
			EncoderCC:    20,
			RecordCC:     21,
			PlaybackCC:   22,
			SaveCC:       23,
			ModeCC:       24,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stepsampler"), nil
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

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults; a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

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

// Validate checks that every MIDI number fits its field
func (c *Config) Validate() error {
	m := c.MIDI
	for _, f := range []struct {
		name string
		v    int
	}{
		{"gateNote", m.GateNote},
		{"encoderCC", m.EncoderCC},
		{"recordCC", m.RecordCC},
		{"playbackCC", m.PlaybackCC},
		{"saveCC", m.SaveCC},
		{"modeCC", m.ModeCC},
	} {
		if f.v < 0 || f.v > 127 {
			return fmt.Errorf("midi.%s %d out of range 0-127", f.name, f.v)
		}
	}
	if m.StepNoteBase < 0 || m.StepNoteBase > 127-7 {
		return fmt.Errorf("midi.stepNoteBase %d out of range 0-120", m.StepNoteBase)
	}
	if m.OutChannel < 0 || m.OutChannel > 15 {
		return fmt.Errorf("midi.outChannel %d out of range 0-15", m.OutChannel)
	}
	if m.ClockDivider < 0 {
		return fmt.Errorf("midi.clockDivider %d is negative", m.ClockDivider)
	}
	if c.BusyPolls < 0 {
		return fmt.Errorf("busyPolls %d is negative", c.BusyPolls)
	}
	return nil
}
