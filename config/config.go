// Package config loads and validates PlotStream's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/transport"
)

// Config is the root configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Transport TransportConfig `yaml:"transport"`
	Export    ExportConfig    `yaml:"export"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig sizes the ring store.
type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

// TransportConfig selects and parameterizes the data source.
type TransportConfig struct {
	Kind   string       `yaml:"kind"` // serial, net, synth
	Serial SerialConfig `yaml:"serial"`
	Net    NetConfig    `yaml:"net"`
	Synth  SynthConfig  `yaml:"synth"`
}

// SerialConfig parameterizes the serial backend. Only baud is guaranteed to
// be honored; the framing options are best-effort.
type SerialConfig struct {
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
	Framing  string `yaml:"framing"` // lines (default) or cobs
}

// NetConfig parameterizes the network stream backend.
type NetConfig struct {
	URL            string        `yaml:"url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// SynthConfig parameterizes the synthetic generator.
type SynthConfig struct {
	Channels  int     `yaml:"channels"`
	Rate      float64 `yaml:"rate"`
	Shape     string  `yaml:"shape"`
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}

// ExportConfig shapes CSV/WAV output written at shutdown.
type ExportConfig struct {
	SampleRate       int    `yaml:"sample_rate"`
	TimestampMode    string `yaml:"timestamp_mode"` // absolute, relative, raw
	IncludeTimestamp bool   `yaml:"include_timestamp"`
	CSVPath          string `yaml:"csv_path"`
	WAVPath          string `yaml:"wav_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Store: StoreConfig{Capacity: 10000},
		Transport: TransportConfig{
			Kind: "synth",
			Serial: SerialConfig{
				Baud:     115200,
				DataBits: 8,
				Parity:   "none",
				StopBits: 1,
				Framing:  "lines",
			},
			Net: NetConfig{ConnectTimeout: 10 * time.Second},
			Synth: SynthConfig{
				Channels:  2,
				Rate:      50,
				Shape:     "sine",
				Frequency: 1,
				Amplitude: 1,
			},
		},
		Export: ExportConfig{
			SampleRate:       1000,
			TimestampMode:    "relative",
			IncludeTimestamp: true,
		},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config", "Load", "file read")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WrapInvalid(err, "config", "Load", "yaml parse")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Store.Capacity < 1 {
		return errors.WrapInvalid(errors.ErrInvalidCapacity, "config", "Validate", "store capacity")
	}

	switch c.Transport.Kind {
	case "serial", "net", "synth":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown transport kind %q", c.Transport.Kind),
			"config", "Validate", "transport kind")
	}

	if c.Transport.Kind == "serial" && c.Transport.Serial.Device == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "serial device")
	}
	switch c.Transport.Serial.Framing {
	case "", "lines", "cobs":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown serial framing %q", c.Transport.Serial.Framing),
			"config", "Validate", "serial framing")
	}
	if c.Transport.Kind == "net" && c.Transport.Net.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "net url")
	}

	if c.Export.SampleRate < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "export sample rate")
	}
	switch c.Export.TimestampMode {
	case "absolute", "relative", "raw":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown timestamp mode %q", c.Export.TimestampMode),
			"config", "Validate", "timestamp mode")
	}

	return nil
}

// Kind returns the configured transport kind.
func (c *TransportConfig) KindValue() transport.Kind {
	return transport.Kind(c.Kind)
}

// Params maps the configuration onto connect parameters for the configured
// kind.
func (c *TransportConfig) Params() transport.Params {
	return transport.Params{
		Device:         c.Serial.Device,
		Baud:           c.Serial.Baud,
		DataBits:       c.Serial.DataBits,
		Parity:         c.Serial.Parity,
		StopBits:       c.Serial.StopBits,
		Framing:        c.Serial.Framing,
		URL:            c.Net.URL,
		ConnectTimeout: c.Net.ConnectTimeout,
		Synth: transport.SynthParams{
			Channels:  c.Synth.Channels,
			Rate:      c.Synth.Rate,
			Shape:     c.Synth.Shape,
			Frequency: c.Synth.Frequency,
			Amplitude: c.Synth.Amplitude,
		},
	}
}
