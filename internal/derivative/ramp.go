package derivative

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Stop is one breakpoint of a color ramp.
type Stop struct {
	Value float64
	Color color.RGBA
}

// ColorRamp maps elevations to colors. It is built once and only read after
// that, so processors on every worker share the same value.
type ColorRamp struct {
	Stops  []Stop
	NoData color.RGBA
}

// noDataTag marks the no-data entry of a ramp table.
const noDataTag = "nv"

// Transparent is the conventional no-data color.
var Transparent = color.RGBA{}

// NewColorRamp validates the stops: there must be at least one and their
// values must be strictly increasing.
func NewColorRamp(stops []Stop, noData color.RGBA) (*ColorRamp, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("color ramp needs at least one stop")
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].Value <= stops[i-1].Value {
			return nil, fmt.Errorf("color ramp values must be strictly increasing: %g follows %g",
				stops[i].Value, stops[i-1].Value)
		}
	}
	return &ColorRamp{Stops: append([]Stop(nil), stops...), NoData: noData}, nil
}

// DefaultRamp is the elevation ramp used when a job configures none:
// shallow water blue at sea level through greens and browns to white at 2000.
func DefaultRamp() *ColorRamp {
	return &ColorRamp{
		Stops: []Stop{
			{Value: 0, Color: colornames.Lightskyblue},
			{Value: 1, Color: colornames.Lightgreen},
			{Value: 100, Color: colornames.Gold},
			{Value: 500, Color: colornames.Orange},
			{Value: 1000, Color: colornames.Sienna},
			{Value: 2000, Color: colornames.White},
		},
		NoData: Transparent,
	}
}

// Table renders the ramp in the engine's color table format: one
// "value r g b a" line per stop in order, then the no-data entry.
func (r *ColorRamp) Table() string {
	lines := make([]string, 0, len(r.Stops)+1)
	for _, s := range r.Stops {
		lines = append(lines, strconv.FormatFloat(s.Value, 'f', -1, 64)+" "+rgba(s.Color))
	}
	lines = append(lines, noDataTag+" "+rgba(r.NoData))
	return strings.Join(lines, "\n")
}

// WriteFile writes the table to dir and returns its path.
func (r *ColorRamp) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, "color.txt")
	if err := os.WriteFile(path, []byte(r.Table()), 0644); err != nil {
		return "", fmt.Errorf("failed to write color ramp: %w", err)
	}
	return path, nil
}

func rgba(c color.RGBA) string {
	return fmt.Sprintf("%d %d %d %d", c.R, c.G, c.B, c.A)
}

// ParseColor accepts a CSS color name ("lightskyblue") or a hex value
// ("#87cefa", "#87cefaff").
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 6 {
			hex += "ff"
		}
		if len(hex) == 8 {
			v, err := strconv.ParseUint(hex, 16, 32)
			if err == nil {
				return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
			}
		}
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}
