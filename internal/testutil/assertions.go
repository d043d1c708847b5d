package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/stretchr/testify/require"
)

// AssertTileLogged checks captured text log output for a line about a tile
// containing message. It hides the text handler's attribute format from the
// tests.
func AssertTileLogged(t *testing.T, logOutput, tileID, message string) {
	t.Helper()

	attr := fmt.Sprintf("tile=%s", tileID)
	for _, line := range strings.Split(logOutput, "\n") {
		if strings.Contains(line, attr) && strings.Contains(line, message) {
			return
		}
	}
	require.Failf(t, "log line not found", "no line for tile '%s' contains %q", tileID, message)
}

// Tiles looks up tile specs by id, failing the test on an unknown id.
func Tiles(t *testing.T, ids ...string) []grid.TileSpec {
	t.Helper()
	tiles := make([]grid.TileSpec, 0, len(ids))
	for _, id := range ids {
		tile, ok := grid.Lookup(id)
		require.True(t, ok, "unknown tile id %s", id)
		tiles = append(tiles, tile)
	}
	return tiles
}
