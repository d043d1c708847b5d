// Package grid partitions the globe into the fixed set of tiles the batch
// works on. Every tile is a 10° by 10° cell identified by its minimum corner.
package grid

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/paulmach/orb"
)

// Step is the angular size of a tile in both axes, in degrees.
const Step = 10

const (
	minLon = -180
	maxLon = 180
	minLat = -90
	maxLat = 90
)

// TileSpec is a single cell of the global grid.
type TileSpec struct {
	ID   string
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Bound returns the tile extent as an orb.Bound.
func (t TileSpec) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{t.MinX, t.MinY},
		Max: orb.Point{t.MaxX, t.MaxY},
	}
}

// String implements fmt.Stringer.
func (t TileSpec) String() string {
	return fmt.Sprintf("%s[%g,%g,%g,%g]", t.ID, t.MinX, t.MinY, t.MaxX, t.MaxY)
}

// Tiles returns all cells of the grid, x-major: for each longitude column
// from -180 eastwards, every latitude row from -90 northwards. The order is
// the same on every call.
func Tiles() []TileSpec {
	tiles := make([]TileSpec, 0, Count())
	for x := minLon; x < maxLon; x += Step {
		for y := minLat; y < maxLat; y += Step {
			tiles = append(tiles, newTile(x, y))
		}
	}
	return tiles
}

// Count is the number of cells in the grid.
func Count() int {
	return ((maxLon - minLon) / Step) * ((maxLat - minLat) / Step)
}

// Lookup returns the tile with the given id.
func Lookup(id string) (TileSpec, bool) {
	x, y, err := ParseID(id)
	if err != nil {
		return TileSpec{}, false
	}
	return newTile(x, y), true
}

func newTile(x, y int) TileSpec {
	return TileSpec{
		ID:   FormatID(x, y),
		MinX: float64(x),
		MinY: float64(y),
		MaxX: float64(x + Step),
		MaxY: float64(y + Step),
	}
}

// FormatID encodes a minimum corner as a tile id. Coordinates are zero
// padded to three characters including the sign, which is the naming the
// published artifacts already use: "-180X_-90Y", "005X_-05Y", "170X_080Y".
func FormatID(minX, minY int) string {
	return fmt.Sprintf("%03dX_%03dY", minX, minY)
}

var idPattern = regexp.MustCompile(`^(-?\d+)X_(-?\d+)Y$`)

// ParseID decodes a tile id back into its minimum corner. Only ids that
// FormatID could have produced for a cell of the grid are accepted.
func ParseID(id string) (minX, minY int, err error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid tile id %q", id)
	}
	minX, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tile id %q: %w", id, err)
	}
	minY, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tile id %q: %w", id, err)
	}
	if FormatID(minX, minY) != id {
		return 0, 0, fmt.Errorf("tile id %q is not in canonical form", id)
	}
	if minX < minLon || minX >= maxLon || minY < minLat || minY >= maxLat {
		return 0, 0, fmt.Errorf("tile id %q is outside the grid", id)
	}
	if (minX-minLon)%Step != 0 || (minY-minLat)%Step != 0 {
		return 0, 0, fmt.Errorf("tile id %q is not aligned to the %d° grid", id, Step)
	}
	return minX, minY, nil
}
