// Package config loads the envclock YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Contrast ContrastConfig `yaml:"contrast"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Loop     LoopConfig     `yaml:"loop"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	Serial   SerialConfig   `yaml:"serial"`
	Log      LogConfig      `yaml:"log"`
}

// GPIOConfig holds BCM line offsets on one gpiochip.
type GPIOConfig struct {
	Chip string    `yaml:"chip"`
	CLK  int       `yaml:"clk"`
	DT   int       `yaml:"dt"`
	SW   int       `yaml:"sw"`
	LCD  LCDConfig `yaml:"lcd"`
}

type LCDConfig struct {
	RS int `yaml:"rs"`
	E  int `yaml:"en"`
	D4 int `yaml:"d4"`
	D5 int `yaml:"d5"`
	D6 int `yaml:"d6"`
	D7 int `yaml:"d7"`
}

type ContrastConfig struct {
	Pin       string `yaml:"pin"`       // periph pin name, e.g. GPIO12
	Frequency int    `yaml:"frequency"` // PWM frequency in Hz
	Initial   int    `yaml:"initial"`   // level applied at boot, 0-255
}

type SensorConfig struct {
	Device string `yaml:"device"` // IIO device directory; empty searches Root for Driver
	Root   string `yaml:"root"`
	Driver string `yaml:"driver"`
}

type LoopConfig struct {
	Poll      Duration `yaml:"poll"`
	Heartbeat Duration `yaml:"heartbeat"` // 0 disables
}

type MQTTConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Broker      string  `yaml:"broker"`
	TopicPrefix string  `yaml:"topic_prefix"`
	PublishRate float64 `yaml:"publish_rate"` // state publishes per second
	Burst       int     `yaml:"burst"`
	BufferSize  int     `yaml:"buffer_size"` // messages held while disconnected
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type SerialConfig struct {
	Port string `yaml:"port"` // empty disables the debug console
	Baud int    `yaml:"baud"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
			CLK:  17,
			DT:   18,
			SW:   27,
			LCD:  LCDConfig{RS: 25, E: 24, D4: 23, D5: 22, D6: 5, D7: 6},
		},
		Contrast: ContrastConfig{
			Pin:       "GPIO12",
			Frequency: 25000,
			Initial:   10,
		},
		Sensor: SensorConfig{
			Root:   "/sys/bus/iio/devices",
			Driver: "dht11",
		},
		Loop: LoopConfig{
			Poll:      Duration(10 * time.Millisecond),
			Heartbeat: Duration(15 * time.Minute),
		},
		MQTT: MQTTConfig{
			Enabled:     true,
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "home/envclock",
			PublishRate: 2,
			Burst:       4,
			BufferSize:  100,
		},
		HTTP:   HTTPConfig{Addr: ":8080"},
		Serial: SerialConfig{Baud: 9600},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over Default. A missing file is not an error.
// ${VAR} and ${VAR:default} are expanded from the environment before
// parsing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envVarRe = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

func expandEnvVars(input string) string {
	return envVarRe.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
}

// maxBCM is the highest BCM line offset on a 40-pin header board.
const maxBCM = 27

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field string, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: "+format, append([]any{field}, args...)...))
	}

	pins := []struct {
		field string
		pin   int
	}{
		{"gpio.clk", c.GPIO.CLK},
		{"gpio.dt", c.GPIO.DT},
		{"gpio.sw", c.GPIO.SW},
		{"gpio.lcd.rs", c.GPIO.LCD.RS},
		{"gpio.lcd.en", c.GPIO.LCD.E},
		{"gpio.lcd.d4", c.GPIO.LCD.D4},
		{"gpio.lcd.d5", c.GPIO.LCD.D5},
		{"gpio.lcd.d6", c.GPIO.LCD.D6},
		{"gpio.lcd.d7", c.GPIO.LCD.D7},
	}
	seen := make(map[int]string, len(pins))
	for _, p := range pins {
		if p.pin < 0 || p.pin > maxBCM {
			bad(p.field, "pin %d out of range 0-%d", p.pin, maxBCM)
			continue
		}
		if other, ok := seen[p.pin]; ok {
			bad(p.field, "pin %d already used by %s", p.pin, other)
			continue
		}
		seen[p.pin] = p.field
	}
	if c.GPIO.Chip == "" {
		bad("gpio.chip", "must not be empty")
	}

	if c.Contrast.Pin == "" {
		bad("contrast.pin", "must not be empty")
	}
	if c.Contrast.Frequency <= 0 {
		bad("contrast.frequency", "must be positive, got %d", c.Contrast.Frequency)
	}
	if c.Contrast.Initial < 0 || c.Contrast.Initial > 255 {
		bad("contrast.initial", "%d out of range 0-255", c.Contrast.Initial)
	}

	if c.Loop.Poll <= 0 {
		bad("loop.poll", "must be positive, got %v", c.Loop.Poll.Duration())
	}
	if c.Loop.Heartbeat < 0 {
		bad("loop.heartbeat", "must not be negative, got %v", c.Loop.Heartbeat.Duration())
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			bad("mqtt.broker", "required when mqtt is enabled")
		}
		if c.MQTT.TopicPrefix == "" {
			bad("mqtt.topic_prefix", "required when mqtt is enabled")
		}
	}
	if c.MQTT.PublishRate < 0 {
		bad("mqtt.publish_rate", "must not be negative, got %g", c.MQTT.PublishRate)
	}
	if c.MQTT.Burst < 1 {
		bad("mqtt.burst", "must be at least 1, got %d", c.MQTT.Burst)
	}
	if c.MQTT.BufferSize < 1 {
		bad("mqtt.buffer_size", "must be at least 1, got %d", c.MQTT.BufferSize)
	}

	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		bad("serial.baud", "must be positive, got %d", c.Serial.Baud)
	}
	if !logLevels[c.Log.Level] {
		bad("log.level", "unknown level %q", c.Log.Level)
	}

	return errors.Join(errs...)
}
