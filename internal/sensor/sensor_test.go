package sensor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAttr(t *testing.T, dir, name, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0o644))
}

func TestIIOReads(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "in_temp_input", "21500\n")
	writeAttr(t, dir, "in_humidityrelative_input", "43000\n")

	s := NewIIO(dir)
	assert.Equal(t, float32(21.5), s.ReadTemperature())
	assert.Equal(t, float32(43), s.ReadHumidity())
}

func TestIIOMissingAttrIsNaN(t *testing.T) {
	s := NewIIO(t.TempDir())
	assert.True(t, math.IsNaN(float64(s.ReadTemperature())))
	assert.True(t, math.IsNaN(float64(s.ReadHumidity())))
}

func TestIIOGarbageIsNaN(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "in_temp_input", "n/a")

	assert.True(t, math.IsNaN(float64(NewIIO(dir).ReadTemperature())))
}

func TestIIONegativeTemperature(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "in_temp_input", "-4250")

	assert.Equal(t, float32(-4.25), NewIIO(dir).ReadTemperature())
}

func TestFindIIO(t *testing.T) {
	root := t.TempDir()
	for dev, name := range map[string]string{"iio:device0": "ads1015", "iio:device1": "dht11"} {
		dir := filepath.Join(root, dev)
		require.NoError(t, os.Mkdir(dir, 0o755))
		writeAttr(t, dir, "name", name+"\n")
	}
	writeAttr(t, filepath.Join(root, "iio:device1"), "in_temp_input", "19000")

	s, err := FindIIO(root, DefaultDriver)
	require.NoError(t, err)
	assert.Equal(t, float32(19), s.ReadTemperature())
}

func TestFindIIONoMatch(t *testing.T) {
	root := t.TempDir()
	_, err := FindIIO(root, DefaultDriver)
	assert.True(t, errors.Is(err, ErrNoDevice))

	_, err = FindIIO(filepath.Join(root, "missing"), DefaultDriver)
	assert.Error(t, err)
}

func TestFakeReader(t *testing.T) {
	f := &FakeReader{Temperature: 20, Humidity: 50}
	assert.Equal(t, float32(20), f.ReadTemperature())
	assert.Equal(t, float32(50), f.ReadHumidity())
	assert.Equal(t, 1, f.TemperatureReads)
	assert.Equal(t, 1, f.HumidityReads)
}

func TestAbsentIsNaN(t *testing.T) {
	var r Reader = Absent{}
	assert.True(t, math.IsNaN(float64(r.ReadTemperature())))
	assert.True(t, math.IsNaN(float64(r.ReadHumidity())))
}
