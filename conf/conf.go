// Package conf loads and validates the hygrologd configuration file.
package conf

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("2s", "750ms") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("conf: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Config is the full hygrologd configuration.
type Config struct {
	Device  Device  `yaml:"device"`
	Poll    Poll    `yaml:"poll"`
	Log     Log     `yaml:"log"`
	Redis   Redis   `yaml:"redis"`
	MQTT    MQTT    `yaml:"mqtt"`
	Monitor Monitor `yaml:"monitor"`
}

// Device names the instrument endpoint and its link parameters.
type Device struct {
	// Endpoint is a serial device path or a tcp://host:port bridge.
	Endpoint    string   `yaml:"endpoint" validate:"required"`
	BaudRate    int      `yaml:"baud_rate"`
	ReadTimeout Duration `yaml:"read_timeout"`
	SettleDelay Duration `yaml:"settle_delay"`
}

// Poll controls the measurement cadence.
type Poll struct {
	Interval Duration `yaml:"interval"`
}

// Log controls output format and rotation.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Redis configures the Redis telemetry sink.
type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Channel  string `yaml:"channel"`
	History  int64  `yaml:"history" validate:"gte=0"`
}

// MQTT configures the MQTT telemetry sink.
type MQTT struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QOS      uint8  `yaml:"qos" validate:"lte=2"`
}

// Monitor configures the Prometheus endpoint.
type Monitor struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration: one-minute polling on
// /dev/ttyUSB0, stderr logging, every sink disabled.
func Default() Config {
	return Config{
		Device: Device{
			Endpoint:    "/dev/ttyUSB0",
			BaudRate:    9600,
			ReadTimeout: Duration(2 * time.Second),
			SettleDelay: Duration(200 * time.Millisecond),
		},
		Poll: Poll{
			Interval: Duration(time.Minute),
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Redis: Redis{
			Addr:    "localhost:6379",
			Channel: "hygro:samples",
			History: 1000,
		},
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "hygrologd",
			Topic:    "hygro/samples",
			QOS:      1,
		},
		Monitor: Monitor{
			Addr: ":9184",
		},
	}
}

// Load reads path and overlays it on Default. A missing file is not an
// error; the defaults run as-is so a bare install still works.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("conf: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("conf: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration for obvious issues, including the
// cross-field ones struct tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("conf: %w", err)
	}
	if c.Poll.Interval.D() <= 0 {
		return fmt.Errorf("conf: poll interval must be positive, got %v", c.Poll.Interval.D())
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("conf: redis enabled without addr")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("conf: mqtt enabled without broker")
	}
	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return fmt.Errorf("conf: monitor enabled without addr")
	}
	return nil
}
