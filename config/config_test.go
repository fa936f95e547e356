package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"midi": {"inPort": "BeatStep", "gateNote": 48}, "debug": true}`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "BeatStep", cfg.MIDI.InPort)
	assert.Equal(t, 48, cfg.MIDI.GateNote)
	assert.Equal(t, 36, cfg.MIDI.StepNoteBase)
	assert.Equal(t, 4, cfg.BusyPolls)
	assert.True(t, cfg.Debug)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.FlashImage = "/tmp/x.bin"
	cfg.MIDI.ClockDivider = 6
	cfg.UI.Palette = "pal.gpl"

	require.NoError(t, cfg.SaveTo(path))
	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"midi": `), 0644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		err    string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"gate note", func(c *Config) { c.MIDI.GateNote = 128 }, "midi.gateNote 128 out of range 0-127"},
		{"encoder", func(c *Config) { c.MIDI.EncoderCC = -1 }, "midi.encoderCC -1 out of range 0-127"},
		{"step base", func(c *Config) { c.MIDI.StepNoteBase = 121 }, "midi.stepNoteBase 121 out of range 0-120"},
		{"channel", func(c *Config) { c.MIDI.OutChannel = 16 }, "midi.outChannel 16 out of range 0-15"},
		{"divider", func(c *Config) { c.MIDI.ClockDivider = -2 }, "midi.clockDivider -2 is negative"},
		{"busy", func(c *Config) { c.BusyPolls = -1 }, "busyPolls -1 is negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.err)
		})
	}
}
