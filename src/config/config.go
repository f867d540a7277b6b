package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinjor/flux/src/flux"
	"github.com/spf13/viper"
)

// Config holds the whole application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Audio  AudioConfig  `mapstructure:"audio" yaml:"audio"`
	IPC    IPCConfig    `mapstructure:"ipc" yaml:"ipc"`
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`
	Render RenderConfig `mapstructure:"render" yaml:"render"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

const (
	ClockInternal = "internal"
	ClockMIDI     = "midi"
)

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate"`
	// BlockSize is the number of frames rendered per Read.
	BlockSize     int     `mapstructure:"block_size" yaml:"block_size"`
	Tempo         float64 `mapstructure:"tempo" yaml:"tempo"`
	Clock         string  `mapstructure:"clock" yaml:"clock"`
	BaseFrequency float64 `mapstructure:"base_frequency" yaml:"base_frequency"`
	Gain          float64 `mapstructure:"gain" yaml:"gain"`
}

// IPCConfig configures the command socket. Timeout bounds each report write;
// a client that stops reading for longer ends the session. Zero disables it.
type IPCConfig struct {
	SocketPath string        `mapstructure:"socket_path" yaml:"socket_path"`
	ReportRate float64       `mapstructure:"report_rate" yaml:"report_rate"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EngineConfig carries the initial engine controls. Enumerated controls are
// given by name.
type EngineConfig struct {
	Seed            uint64  `mapstructure:"seed" yaml:"seed"`
	Spread          float64 `mapstructure:"spread" yaml:"spread"`
	Bias            float64 `mapstructure:"bias" yaml:"bias"`
	Steps           float64 `mapstructure:"steps" yaml:"steps"`
	DejaVu          float64 `mapstructure:"deja_vu" yaml:"deja_vu"`
	Length          int     `mapstructure:"length" yaml:"length"`
	Scale           string  `mapstructure:"scale" yaml:"scale"`
	Rate            float64 `mapstructure:"rate" yaml:"rate"`
	Jitter          float64 `mapstructure:"jitter" yaml:"jitter"`
	GateProbability float64 `mapstructure:"gate_probability" yaml:"gate_probability"`
	TModel          string  `mapstructure:"t_model" yaml:"t_model"`
	TRange          string  `mapstructure:"t_range" yaml:"t_range"`
	PulseWidth      float64 `mapstructure:"pulse_width" yaml:"pulse_width"`
	PulseWidthStd   float64 `mapstructure:"pulse_width_std" yaml:"pulse_width_std"`
	ControlMode     string  `mapstructure:"control_mode" yaml:"control_mode"`
	VoltageRange    string  `mapstructure:"voltage_range" yaml:"voltage_range"`
	Mix             float64 `mapstructure:"mix" yaml:"mix"`
}

type RenderConfig struct {
	Seconds   float64 `mapstructure:"seconds" yaml:"seconds"`
	OutputDir string  `mapstructure:"output_dir" yaml:"output_dir"`
	// ClockPeriod is the length of one clock pulse in samples.
	ClockPeriod int `mapstructure:"clock_period" yaml:"clock_period"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "flux")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)

	// -- Audio --
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.block_size", 1024)
	v.SetDefault("audio.tempo", 120.0)
	v.SetDefault("audio.clock", ClockInternal)
	v.SetDefault("audio.base_frequency", 220.0)
	v.SetDefault("audio.gain", 0.1)

	// -- IPC --
	v.SetDefault("ipc.socket_path", "/tmp/flux.sock")
	v.SetDefault("ipc.report_rate", 30.0)
	v.SetDefault("ipc.timeout", "5s")

	// -- Engine --
	d := flux.DefaultParams()
	v.SetDefault("engine.seed", 1)
	v.SetDefault("engine.spread", d.Spread)
	v.SetDefault("engine.bias", d.Bias)
	v.SetDefault("engine.steps", d.Steps)
	v.SetDefault("engine.deja_vu", d.DejaVu)
	v.SetDefault("engine.length", d.Length)
	v.SetDefault("engine.scale", flux.Scale(d.Scale).Name)
	v.SetDefault("engine.rate", d.Rate)
	v.SetDefault("engine.jitter", d.Jitter)
	v.SetDefault("engine.gate_probability", d.GateProbability)
	v.SetDefault("engine.t_model", d.TModel.String())
	v.SetDefault("engine.t_range", d.TRange.String())
	v.SetDefault("engine.pulse_width", d.PulseWidth)
	v.SetDefault("engine.pulse_width_std", d.PulseWidthStd)
	v.SetDefault("engine.control_mode", d.ControlMode.String())
	v.SetDefault("engine.voltage_range", d.VoltageRange.String())
	v.SetDefault("engine.mix", d.Mix)

	// -- Render --
	v.SetDefault("render.seconds", 10.0)
	v.SetDefault("render.output_dir", ".")
	v.SetDefault("render.clock_period", 12000)
}

// NewViper returns a viper instance with defaults, the FLUX_ environment
// prefix and, when path is not empty, the given config file.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("FLUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return v, nil
	}
	v.SetConfigName("flux")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// NewConfigFromViper unmarshals and validates the configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio configuration invalid: %w", err)
	}
	if c.IPC.ReportRate <= 0 {
		return fmt.Errorf("ipc.report_rate must be positive")
	}
	if c.IPC.Timeout < 0 {
		return fmt.Errorf("ipc.timeout must not be negative")
	}
	if _, err := c.Engine.Params(); err != nil {
		return fmt.Errorf("engine configuration invalid: %w", err)
	}
	if c.Render.Seconds <= 0 {
		return fmt.Errorf("render.seconds must be positive")
	}
	if c.Render.ClockPeriod < 2 {
		return fmt.Errorf("render.clock_period must be at least 2 samples")
	}
	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if a.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive")
	}
	if a.Tempo <= 0 {
		return fmt.Errorf("tempo must be positive")
	}
	if a.Clock != ClockInternal && a.Clock != ClockMIDI {
		return fmt.Errorf("clock must be %q or %q, got %q", ClockInternal, ClockMIDI, a.Clock)
	}
	if a.BaseFrequency <= 0 {
		return fmt.Errorf("base_frequency must be positive")
	}
	if a.Gain < 0 || a.Gain > 1 {
		return fmt.Errorf("gain must be between 0.0 and 1.0")
	}
	return nil
}

// Params converts the engine section into engine parameters. Unknown names
// are an error; numeric values are clamped by the engine.
func (e *EngineConfig) Params() (flux.Params, error) {
	scale, ok := flux.ScaleIndexFromString(e.Scale)
	if !ok {
		return flux.Params{}, fmt.Errorf("unknown scale %q", e.Scale)
	}
	model, ok := flux.ModelFromString(e.TModel)
	if !ok {
		return flux.Params{}, fmt.Errorf("unknown t_model %q", e.TModel)
	}
	tRange, err := lookup("t_range", e.TRange, flux.RangeCount, func(i int) string { return flux.Range(i).String() })
	if err != nil {
		return flux.Params{}, err
	}
	mode, err := lookup("control_mode", e.ControlMode, flux.ControlModeCount, func(i int) string { return flux.ControlMode(i).String() })
	if err != nil {
		return flux.Params{}, err
	}
	voltage, err := lookup("voltage_range", e.VoltageRange, flux.VoltageRangeCount, func(i int) string { return flux.VoltageRange(i).String() })
	if err != nil {
		return flux.Params{}, err
	}
	return flux.Params{
		Spread:          e.Spread,
		Bias:            e.Bias,
		Steps:           e.Steps,
		DejaVu:          e.DejaVu,
		Length:          e.Length,
		Scale:           scale,
		Rate:            e.Rate,
		Jitter:          e.Jitter,
		GateProbability: e.GateProbability,
		TModel:          model,
		TRange:          flux.Range(tRange),
		PulseWidth:      e.PulseWidth,
		PulseWidthStd:   e.PulseWidthStd,
		ControlMode:     flux.ControlMode(mode),
		VoltageRange:    flux.VoltageRange(voltage),
		Mix:             e.Mix,
	}, nil
}

func lookup(key string, name string, count int, nameOf func(int) string) (int, error) {
	for i := 0; i < count; i++ {
		if nameOf(i) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", key, name)
}
