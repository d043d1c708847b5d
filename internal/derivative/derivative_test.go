package derivative

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/reliefgrid/internal/dem"
	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustColor(t *testing.T, name string) color.RGBA {
	t.Helper()
	c, err := ParseColor(name)
	require.NoError(t, err)
	return c
}

func TestColorRamp_Table(t *testing.T) {
	values := []float64{0, 1, 100, 500, 1000, 2000}
	names := []string{"lightskyblue", "lightgreen", "gold", "orange", "sienna", "white"}

	stops := make([]Stop, len(values))
	for i := range values {
		stops[i] = Stop{Value: values[i], Color: mustColor(t, names[i])}
	}
	ramp, err := NewColorRamp(stops, Transparent)
	require.NoError(t, err)

	lines := strings.Split(ramp.Table(), "\n")
	require.Equal(t, []string{
		"0 135 206 250 255",
		"1 144 238 144 255",
		"100 255 215 0 255",
		"500 255 165 0 255",
		"1000 160 82 45 255",
		"2000 255 255 255 255",
		"nv 0 0 0 0",
	}, lines)
}

func TestDefaultRamp(t *testing.T) {
	def := DefaultRamp()
	built, err := NewColorRamp(def.Stops, def.NoData)
	require.NoError(t, err)
	require.Equal(t, built.Table(), def.Table())
	require.True(t, strings.HasPrefix(def.Table(), "0 135 206 250 255\n"))
}

func TestNewColorRamp_RejectsUnordered(t *testing.T) {
	_, err := NewColorRamp([]Stop{{Value: 0}, {Value: 0}}, Transparent)
	require.Error(t, err)

	_, err = NewColorRamp([]Stop{{Value: 10}, {Value: 5}}, Transparent)
	require.Error(t, err)

	_, err = NewColorRamp(nil, Transparent)
	require.Error(t, err)
}

func TestNewColorRamp_CopiesStops(t *testing.T) {
	stops := []Stop{{Value: 0}, {Value: 1}}
	ramp, err := NewColorRamp(stops, Transparent)
	require.NoError(t, err)

	stops[0].Value = 99
	require.Equal(t, 0.0, ramp.Stops[0].Value)
}

func TestColorRamp_WriteFile(t *testing.T) {
	ramp, err := NewColorRamp([]Stop{{Value: -10.5, Color: color.RGBA{1, 2, 3, 4}}}, Transparent)
	require.NoError(t, err)

	path, err := ramp.WriteFile(t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "-10.5 1 2 3 4\nnv 0 0 0 0", string(data))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{0x87, 0xce, 0xfa, 0xff}, mustColor(t, "#87CEFA"))
	assert.Equal(t, color.RGBA{1, 2, 3, 4}, mustColor(t, "#01020304"))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, mustColor(t, " White "))

	for _, bad := range []string{"", "notacolor", "#12", "#zzzzzz"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

type stubEngine struct {
	calls []string
	err   error
}

func (s *stubEngine) Hillshade(_ context.Context, src string, p engine.HillshadeParams, dst string) error {
	s.calls = append(s.calls, "hillshade "+src+" "+dst)
	return s.err
}

func (s *stubEngine) ColorMap(_ context.Context, src, rampFile, dst string) error {
	s.calls = append(s.calls, "color-map "+src+" "+rampFile+" "+dst)
	return s.err
}

func TestProcessors(t *testing.T) {
	tile, _ := grid.Lookup("170X_080Y")
	m := dem.Mosaic{Path: "/work/dem.tif", Tile: tile}
	dir := t.TempDir()

	e := &stubEngine{}
	procs := []Processor{
		NewHillshade(e, DefaultHillshade),
		NewColorRelief(e, "/ramp/color.txt"),
	}

	hs, err := procs[0].Process(context.Background(), m, dir)
	require.NoError(t, err)
	require.Equal(t, Artifact{Path: filepath.Join(dir, "hillshade.tif"), Kind: product.Hillshade}, hs)
	require.Equal(t, product.Hillshade, procs[0].Kind())

	cr, err := procs[1].Process(context.Background(), m, dir)
	require.NoError(t, err)
	require.Equal(t, Artifact{Path: filepath.Join(dir, "colored.tif"), Kind: product.ColorRelief}, cr)
	require.Equal(t, product.ColorRelief, procs[1].Kind())

	require.Equal(t, []string{
		"hillshade /work/dem.tif " + filepath.Join(dir, "hillshade.tif"),
		"color-map /work/dem.tif /ramp/color.txt " + filepath.Join(dir, "colored.tif"),
	}, e.calls)
}

func TestProcessors_EngineError(t *testing.T) {
	tile, _ := grid.Lookup("170X_080Y")
	engErr := &engine.Error{Op: "hillshade", ExitCode: 1}
	e := &stubEngine{err: engErr}

	_, err := NewHillshade(e, DefaultHillshade).Process(context.Background(), dem.Mosaic{Tile: tile}, t.TempDir())
	var target *engine.Error
	require.True(t, errors.As(err, &target))

	_, err = NewColorRelief(e, "ramp").Process(context.Background(), dem.Mosaic{Tile: tile}, t.TempDir())
	require.ErrorAs(t, err, &target)
}
