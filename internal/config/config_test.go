package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "envclock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
gpio:
  clk: 5
  dt: 6
  lcd:
    d6: 13
    d7: 19
contrast:
  initial: 40
loop:
  poll: 20ms
  heartbeat: 0s
mqtt:
  enabled: false
http:
  addr: ""
log:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.GPIO.CLK)
	assert.Equal(t, 6, cfg.GPIO.DT)
	assert.Equal(t, 27, cfg.GPIO.SW, "unset fields keep defaults")
	assert.Equal(t, 13, cfg.GPIO.LCD.D6)
	assert.Equal(t, 25, cfg.GPIO.LCD.RS)
	assert.Equal(t, 40, cfg.Contrast.Initial)
	assert.Equal(t, 20*time.Millisecond, cfg.Loop.Poll.Duration())
	assert.Zero(t, cfg.Loop.Heartbeat)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Empty(t, cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("ENVCLOCK_BROKER", "tcp://10.0.0.2:1883")
	path := writeConfig(t, `
mqtt:
  broker: ${ENVCLOCK_BROKER}
  topic_prefix: ${ENVCLOCK_PREFIX:home/hall}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.2:1883", cfg.MQTT.Broker)
	assert.Equal(t, "home/hall", cfg.MQTT.TopicPrefix)
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "loop:\n  poll: fast\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "gpio:\n  clk: 40\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpio.clk")
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.GPIO.DT = cfg.GPIO.CLK
	cfg.Contrast.Initial = 300
	cfg.Loop.Poll = 0
	cfg.MQTT.Broker = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"gpio.dt", "contrast.initial", "loop.poll", "mqtt.broker", "log.level"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidateSerialBaudOnlyWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Serial.Baud = 0
	assert.NoError(t, cfg.Validate())

	cfg.Serial.Port = "/dev/ttyAMA0"
	assert.ErrorContains(t, cfg.Validate(), "serial.baud")
}

func TestBrokerNotRequiredWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Enabled = false
	cfg.MQTT.Broker = ""
	assert.NoError(t, cfg.Validate())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("A_SET", "x")
	assert.Equal(t, "x-def-", expandEnvVars("${A_SET}-${A_UNSET:def}-${A_UNSET}"))
	assert.Equal(t, "plain $HOME", expandEnvVars("plain $HOME"))
}
