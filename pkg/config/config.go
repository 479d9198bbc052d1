package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the bridge configuration.
type Config struct {
	Host       HostConfig       `yaml:"host"`
	Probe      ProbeConfig      `yaml:"probe"`
	Conversion ConversionConfig `yaml:"conversion"`
	Sampling   SamplingConfig   `yaml:"sampling"`
	Console    ConsoleConfig    `yaml:"console"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Mock       MockConfig       `yaml:"mock"`
}

// HostConfig describes the operator terminal channel.
type HostConfig struct {
	Port string `yaml:"port"` // empty = stdin/stdout
	Baud int    `yaml:"baud"`
}

// ProbeConfig describes the sensor link channel.
type ProbeConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ConversionConfig holds the EC-derived metric factors.
type ConversionConfig struct {
	TDSFactor float64 `yaml:"tds_factor"` // ppm per uS/cm; use 0.7 for the 700 scale
	SALFactor float64 `yaml:"sal_factor"` // ppm per uS/cm
}

// SamplingConfig holds the streaming scheduler parameters.
type SamplingConfig struct {
	DefaultPeriod time.Duration `yaml:"default_period"` // between autonomous reads
	ReadTimeout   time.Duration `yaml:"read_timeout"`   // per streamed read; the probe answers in under a second
}

// ConsoleConfig holds operator line framing parameters.
type ConsoleConfig struct {
	// IdleGap completes a pending line when no byte arrives for this long,
	// for terminals configured with "line ending: none".
	IdleGap time.Duration `yaml:"idle_gap"`
}

// TimeoutConfig is the per-command reply budget table. Calibration at a
// named point is the slowest operation the probe performs.
type TimeoutConfig struct {
	Read       time.Duration `yaml:"read"`
	TempComp   time.Duration `yaml:"temp_comp"`
	CalClear   time.Duration `yaml:"cal_clear"`
	CalDry     time.Duration `yaml:"cal_dry"`
	CalQuery   time.Duration `yaml:"cal_query"`
	CalPoint   time.Duration `yaml:"cal_point"`
	Output     time.Duration `yaml:"output"`
	Info       time.Duration `yaml:"info"`
	Status     time.Duration `yaml:"status"`
	LED        time.Duration `yaml:"led"`
	Factory    time.Duration `yaml:"factory"`
	Sleep      time.Duration `yaml:"sleep"`
	Continuous time.Duration `yaml:"continuous"`
	CellQuery  time.Duration `yaml:"cell_query"`
	CellSet    time.Duration `yaml:"cell_set"`
	Configure  time.Duration `yaml:"configure"` // startup output-field commands
}

// MQTTConfig configures the optional telemetry fan-out of streamed readings.
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	Port           int           `yaml:"port"`
	ClientID       string        `yaml:"client_id"`
	ProbeID        string        `yaml:"probe_id"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// MockConfig configures the simulated probe used with -mock and in tests.
type MockConfig struct {
	BaseEC     float64       `yaml:"base_ec"`     // uS/cm around which readings drift
	Drift      float64       `yaml:"drift"`       // per-read wander amplitude
	ReplyDelay time.Duration `yaml:"reply_delay"` // simulated probe latency
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Host: HostConfig{
			Port: "", // local stdin/stdout unless a port is named
			Baud: 115200,
		},
		Probe: ProbeConfig{
			Port: "/dev/ttyUSB0",
			Baud: 9600,
		},
		Conversion: ConversionConfig{
			TDSFactor: 0.5,
			SALFactor: 0.0005,
		},
		Sampling: SamplingConfig{
			DefaultPeriod: time.Second,
			ReadTimeout:   900 * time.Millisecond,
		},
		Console: ConsoleConfig{
			IdleGap: 300 * time.Millisecond,
		},
		Timeouts: TimeoutConfig{
			Read:       1000 * time.Millisecond,
			TempComp:   1200 * time.Millisecond,
			CalClear:   1500 * time.Millisecond,
			CalDry:     2000 * time.Millisecond,
			CalQuery:   1500 * time.Millisecond,
			CalPoint:   4000 * time.Millisecond,
			Output:     1500 * time.Millisecond,
			Info:       1500 * time.Millisecond,
			Status:     1500 * time.Millisecond,
			LED:        1200 * time.Millisecond,
			Factory:    2000 * time.Millisecond,
			Sleep:      1200 * time.Millisecond,
			Continuous: 1200 * time.Millisecond,
			CellQuery:  1200 * time.Millisecond,
			CellSet:    1500 * time.Millisecond,
			Configure:  1200 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Enabled:        false,
			Broker:         "localhost",
			Port:           1883,
			ClientID:       "ecbridge",
			ProbeID:        "ec0",
			PublishTimeout: 5 * time.Second,
		},
		Mock: MockConfig{
			BaseEC:     1413.0, // mid calibration standard
			Drift:      5.0,
			ReplyDelay: 50 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Host.Baud == 0 {
		c.Host.Baud = def.Host.Baud
	}
	if c.Probe.Port == "" {
		c.Probe.Port = def.Probe.Port
	}
	if c.Probe.Baud == 0 {
		c.Probe.Baud = def.Probe.Baud
	}

	if c.Conversion.TDSFactor == 0 {
		c.Conversion.TDSFactor = def.Conversion.TDSFactor
	}
	if c.Conversion.SALFactor == 0 {
		c.Conversion.SALFactor = def.Conversion.SALFactor
	}

	if c.Sampling.DefaultPeriod == 0 {
		c.Sampling.DefaultPeriod = def.Sampling.DefaultPeriod
	}
	if c.Sampling.ReadTimeout == 0 {
		c.Sampling.ReadTimeout = def.Sampling.ReadTimeout
	}

	if c.Console.IdleGap == 0 {
		c.Console.IdleGap = def.Console.IdleGap
	}

	ensureTimeouts(&c.Timeouts, &def.Timeouts)

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = def.MQTT.Port
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.ProbeID == "" {
		c.MQTT.ProbeID = def.MQTT.ProbeID
	}
	if c.MQTT.PublishTimeout == 0 {
		c.MQTT.PublishTimeout = def.MQTT.PublishTimeout
	}

	if c.Mock.BaseEC == 0 {
		c.Mock.BaseEC = def.Mock.BaseEC
	}
	if c.Mock.ReplyDelay == 0 {
		c.Mock.ReplyDelay = def.Mock.ReplyDelay
	}
}

func ensureTimeouts(t, def *TimeoutConfig) {
	if t.Read == 0 {
		t.Read = def.Read
	}
	if t.TempComp == 0 {
		t.TempComp = def.TempComp
	}
	if t.CalClear == 0 {
		t.CalClear = def.CalClear
	}
	if t.CalDry == 0 {
		t.CalDry = def.CalDry
	}
	if t.CalQuery == 0 {
		t.CalQuery = def.CalQuery
	}
	if t.CalPoint == 0 {
		t.CalPoint = def.CalPoint
	}
	if t.Output == 0 {
		t.Output = def.Output
	}
	if t.Info == 0 {
		t.Info = def.Info
	}
	if t.Status == 0 {
		t.Status = def.Status
	}
	if t.LED == 0 {
		t.LED = def.LED
	}
	if t.Factory == 0 {
		t.Factory = def.Factory
	}
	if t.Sleep == 0 {
		t.Sleep = def.Sleep
	}
	if t.Continuous == 0 {
		t.Continuous = def.Continuous
	}
	if t.CellQuery == 0 {
		t.CellQuery = def.CellQuery
	}
	if t.CellSet == 0 {
		t.CellSet = def.CellSet
	}
	if t.Configure == 0 {
		t.Configure = def.Configure
	}
}
