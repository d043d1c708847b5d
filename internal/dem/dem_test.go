package dem

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/specialistvlad/reliefgrid/internal/catalog"
	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	entries []catalog.Entry
	err     error
	got     orb.Bound
}

func (s *stubCatalog) Query(_ context.Context, b orb.Bound) ([]catalog.Entry, error) {
	s.got = b
	return s.entries, s.err
}

type stubMosaicker struct {
	sources []string
	bound   orb.Bound
	dst     string
	err     error
}

func (s *stubMosaicker) Mosaic(_ context.Context, sources []string, b orb.Bound, dst string) error {
	s.sources, s.bound, s.dst = sources, b, dst
	return s.err
}

var vsicurl = ResolverFunc(func(id string) (string, error) {
	return fmt.Sprintf("/vsicurl/https://example.com/nasadem/%s.tif", id), nil
})

func TestAssemble(t *testing.T) {
	tile, _ := grid.Lookup("000X_000Y")
	cat := &stubCatalog{entries: []catalog.Entry{{ID: "n00e000"}, {ID: "n01e001"}}}
	m := &stubMosaicker{}
	dir := t.TempDir()

	mosaic, err := New(cat, m, vsicurl).Assemble(context.Background(), tile, dir)
	require.NoError(t, err)

	require.Equal(t, tile.Bound(), cat.got)
	require.Equal(t, tile.Bound(), m.bound)
	require.Equal(t, []string{
		"/vsicurl/https://example.com/nasadem/n00e000.tif",
		"/vsicurl/https://example.com/nasadem/n01e001.tif",
	}, m.sources)
	require.Equal(t, Mosaic{Path: filepath.Join(dir, "dem.tif"), Tile: tile}, mosaic)
}

func TestAssemble_NoSourceData(t *testing.T) {
	tile, _ := grid.Lookup("-150X_-40Y")
	m := &stubMosaicker{}

	_, err := New(&stubCatalog{}, m, vsicurl).Assemble(context.Background(), tile, t.TempDir())

	var noData *NoSourceDataError
	require.ErrorAs(t, err, &noData)
	require.Equal(t, "-150X_-40Y", noData.TileID)
	require.True(t, IsNoSourceData(fmt.Errorf("wrapped: %w", err)))
	require.Nil(t, m.sources, "mosaic must not run without sources")
}

func TestAssemble_PropagatesFailures(t *testing.T) {
	tile, _ := grid.Lookup("000X_000Y")
	boom := errors.New("boom")

	_, err := New(&stubCatalog{err: boom}, &stubMosaicker{}, vsicurl).Assemble(context.Background(), tile, t.TempDir())
	require.ErrorIs(t, err, boom)
	require.False(t, IsNoSourceData(err))

	cat := &stubCatalog{entries: []catalog.Entry{{ID: "n00e000"}}}
	_, err = New(cat, &stubMosaicker{err: boom}, vsicurl).Assemble(context.Background(), tile, t.TempDir())
	require.ErrorIs(t, err, boom)

	badResolver := ResolverFunc(func(string) (string, error) { return "", boom })
	_, err = New(cat, &stubMosaicker{}, badResolver).Assemble(context.Background(), tile, t.TempDir())
	require.ErrorIs(t, err, boom)
}
