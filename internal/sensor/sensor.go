// Package sensor reads temperature and humidity.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Reader reads the sensor. Each call is bounded in latency and returns NaN
// when the reading failed; callers pass NaN through unchanged.
type Reader interface {
	ReadTemperature() float32 // degrees Celsius
	ReadHumidity() float32    // percent relative humidity
}

// ErrNoDevice is returned when no matching IIO device exists.
var ErrNoDevice = errors.New("sensor: no iio device found")

// DefaultIIORoot is where the kernel lists industrial I/O devices.
const DefaultIIORoot = "/sys/bus/iio/devices"

// DefaultDriver is the IIO device name registered by the kernel dht11
// driver (dtoverlay=dht11 on a Raspberry Pi).
const DefaultDriver = "dht11"

// IIO reads a DHT-class sensor through the kernel IIO sysfs interface.
// Values are in milli-units.
type IIO struct {
	dir string
}

// NewIIO reads from the device directory dir.
func NewIIO(dir string) *IIO {
	return &IIO{dir: dir}
}

// FindIIO returns the first device under root whose name file matches
// driver.
func FindIIO(root, driver string) (*IIO, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(name)) == driver {
			return NewIIO(dir), nil
		}
	}
	return nil, fmt.Errorf("%w: driver %q under %s", ErrNoDevice, driver, root)
}

// ReadTemperature returns degrees Celsius or NaN.
func (s *IIO) ReadTemperature() float32 {
	return s.read("in_temp_input")
}

// ReadHumidity returns percent relative humidity or NaN.
func (s *IIO) ReadHumidity() float32 {
	return s.read("in_humidityrelative_input")
}

// read parses a milli-unit attribute. The dht11 driver returns EIO or
// ETIMEDOUT when the sensor misses its timing window.
func (s *IIO) read(attr string) float32 {
	raw, err := os.ReadFile(filepath.Join(s.dir, attr))
	if err != nil {
		log.Debug().Err(err).Str("attr", attr).Msg("sensor read failed")
		return float32(math.NaN())
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		log.Debug().Err(err).Str("attr", attr).Msg("sensor value unparsable")
		return float32(math.NaN())
	}
	return float32(milli) / 1000
}

// Absent stands in for a sensor that was not found at startup. Every
// reading is NaN.
type Absent struct{}

func (Absent) ReadTemperature() float32 { return float32(math.NaN()) }
func (Absent) ReadHumidity() float32    { return float32(math.NaN()) }

// FakeReader returns fixed values and counts reads.
type FakeReader struct {
	Temperature float32
	Humidity    float32

	TemperatureReads int
	HumidityReads    int
}

// ReadTemperature returns f.Temperature.
func (f *FakeReader) ReadTemperature() float32 {
	f.TemperatureReads++
	return f.Temperature
}

// ReadHumidity returns f.Humidity.
func (f *FakeReader) ReadHumidity() float32 {
	f.HumidityReads++
	return f.Humidity
}
