package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/hiway/keysynth/pkg/engine"
	"github.com/hiway/keysynth/pkg/keymap"
	"github.com/hiway/keysynth/pkg/voice"
)

// FileName is the config file looked up by Find.
const FileName = "keysynth.toml"

// Audio defines the output stream.
type Audio struct {
	SampleRate  int `toml:"sample_rate"`
	BlockLength int `toml:"block_length"` // samples per envelope ramp
	BufferMs    int `toml:"buffer_ms"`    // device buffer, 0 lets oto decide
	QueueLength int `toml:"queue_length"` // pending key intents between renders
}

// Validate checks if the audio configuration is valid.
func (a *Audio) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", a.SampleRate)
	}
	if a.BlockLength <= 0 || a.BlockLength > 1<<16 {
		return fmt.Errorf("block_length must be between 1 and 65536, got %d", a.BlockLength)
	}
	if a.BufferMs < 0 {
		return fmt.Errorf("buffer_ms cannot be negative")
	}
	if a.QueueLength < 0 {
		return fmt.Errorf("queue_length cannot be negative")
	}
	return nil
}

// BufferSize returns the device buffer duration.
func (a *Audio) BufferSize() time.Duration {
	return time.Duration(a.BufferMs) * time.Millisecond
}

// Voice defines how notes sound.
type Voice struct {
	DecayRate  float64 `toml:"decay_rate"` // envelope units per second
	Instrument string  `toml:"instrument"` // "hotel" or "triangle"
}

// Validate checks if the voice configuration is valid.
func (v *Voice) Validate() error {
	if v.DecayRate < 0 {
		return fmt.Errorf("decay_rate cannot be negative")
	}
	if _, err := voice.ParseWaveform(v.Instrument); err != nil {
		return err
	}
	return nil
}

// Config holds the complete keysynth configuration.
type Config struct {
	Audio  Audio                      `toml:"audio"`
	Voice  Voice                      `toml:"voice"`
	Keys   map[string]*keymap.Binding `toml:"keys"`
	Layout *keymap.Layout             `toml:"-"` // Built after config load
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := engine.DefaultOptions()
	cfg := &Config{
		Audio: Audio{
			SampleRate:  opts.SampleRate,
			BlockLength: opts.BlockLength,
			QueueLength: opts.QueueLength,
		},
		Voice: Voice{
			DecayRate:  opts.DecayRate,
			Instrument: opts.Instrument.String(),
		},
		Keys: keymap.DefaultBindings(),
	}
	layout, err := keymap.NewLayout(cfg.Keys)
	if err != nil {
		panic(fmt.Sprintf("default key bindings: %v", err))
	}
	cfg.Layout = layout
	return cfg
}

// Validate checks every section and rebuilds the key layout.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("invalid [audio]: %w", err)
	}
	if err := c.Voice.Validate(); err != nil {
		return fmt.Errorf("invalid [voice]: %w", err)
	}
	layout, err := keymap.NewLayout(c.Keys)
	if err != nil {
		return err
	}
	c.Layout = layout
	return nil
}

// EngineOptions converts the configuration for engine.New.
func (c *Config) EngineOptions() engine.Options {
	wf, _ := voice.ParseWaveform(c.Voice.Instrument)
	return engine.Options{
		SampleRate:  c.Audio.SampleRate,
		BlockLength: c.Audio.BlockLength,
		DecayRate:   c.Voice.DecayRate,
		Instrument:  wf,
		QueueLength: c.Audio.QueueLength,
	}
}

// Find returns the config file to load: ./keysynth.toml if present,
// otherwise keysynth/keysynth.toml under the XDG config directories.
func Find() (string, bool) {
	if _, err := os.Stat(FileName); err == nil {
		return FileName, true
	}
	path, err := xdg.SearchConfigFile("keysynth/" + FileName)
	if err != nil {
		return "", false
	}
	return path, true
}

// LoadConfig reads a TOML file over the defaults and validates the result.
// Key bindings in the file replace default bindings of the same name and
// take their keys from other default bindings.
func LoadConfig(path string, log zerolog.Logger) (*Config, error) {
	log.Debug().Str("path", path).Msg("Loading configuration file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	keys := cfg.Keys
	cfg.Keys = nil
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	for _, key := range md.Undecoded() {
		log.Warn().Str("key", key.String()).Msg("Ignoring unknown config key")
	}

	for name, b := range cfg.Keys {
		log.Debug().Str("binding", name).Strs("keys", b.Keys).Msg("Overriding key binding")
	}
	cfg.Keys = keymap.Merge(keys, cfg.Keys)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Msg("Configuration loaded and validated successfully")
	return cfg, nil
}
