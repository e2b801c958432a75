package bias

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-scout/internal/model"
)

func TestDefaultClimatology_Valid(t *testing.T) {
	c := DefaultClimatology()
	require.NoError(t, c.Validate())
}

func TestValidate_RejectsOutOfRangeAttenuation(t *testing.T) {
	c := DefaultClimatology()
	c.Attenuation[3] = 0.9
	assert.Error(t, c.Validate())

	c = DefaultClimatology()
	c.Attenuation[0] = 0.4
	assert.Error(t, c.Validate())
}

func TestTemperatureDerate(t *testing.T) {
	c := DefaultClimatology()

	// A 25°C month has no derate.
	c.AmbientC[5] = 25
	assert.Equal(t, 1.0, c.TemperatureDerate(time.June))

	// 35°C derates by 4%.
	c.AmbientC[6] = 35
	assert.InDelta(t, 0.96, c.TemperatureDerate(time.July), 1e-9)

	// Cold months derate above 1 is allowed by the formula, floor at 0.5
	// guards the hot extreme.
	c.AmbientC[0] = 400
	assert.Equal(t, 0.5, c.TemperatureDerate(time.January))
}

func TestBaseline_PositiveWhenSunUp(t *testing.T) {
	c := DefaultClimatology()
	loc := model.Coordinate{Lat: 30.2672, Lng: -97.7431}

	b := c.Baseline(loc, 2025, 172, 23, 180)
	assert.Greater(t, b, 0.0)
}

func TestBaseline_ZeroInPolarNight(t *testing.T) {
	c := DefaultClimatology()
	// June 21 at 85°S: no sun, baseline collapses to zero.
	b := c.Baseline(model.Coordinate{Lat: -85, Lng: 0}, 2025, 172, 20, 0)
	assert.Equal(t, 0.0, b)
}

func TestLoadClimatologyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clim.yaml")
	content := `
attenuation: [0.56, 0.57, 0.58, 0.59, 0.60, 0.61, 0.62, 0.63, 0.64, 0.65, 0.66, 0.67]
ambient_c: [0, 2, 6, 12, 18, 24, 28, 27, 22, 15, 8, 2]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadClimatologyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.56, c.Attenuation[0])
	assert.Equal(t, 28.0, c.AmbientC[6])
}

func TestLoadClimatologyFile_MissingFile(t *testing.T) {
	_, err := LoadClimatologyFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadClimatologyFile_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := `
attenuation: [0.9, 0.57, 0.58, 0.59, 0.60, 0.61, 0.62, 0.63, 0.64, 0.65, 0.66, 0.67]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadClimatologyFile(path)
	assert.Error(t, err)
}
