// Package dem assembles the elevation model of a single tile: it finds the
// source rasters that intersect the tile and mosaics them into one raster
// clipped to the tile bounds.
package dem

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/specialistvlad/reliefgrid/internal/catalog"
	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/grid"
)

// Mosaic is the assembled elevation raster of one tile. It lives in the
// tile job's working directory and goes away with it.
type Mosaic struct {
	Path string
	Tile grid.TileSpec
}

// NoSourceDataError means the catalog has no elevation data for the tile,
// which is expected for open ocean cells.
type NoSourceDataError struct {
	TileID string
}

func (e *NoSourceDataError) Error() string {
	return fmt.Sprintf("no source data for tile %s", e.TileID)
}

// IsNoSourceData reports whether err is, or wraps, a NoSourceDataError.
func IsNoSourceData(err error) bool {
	var target *NoSourceDataError
	return errors.As(err, &target)
}

// Resolver turns a catalog entry id into a raster reference the engine can
// open, such as a /vsicurl/ URL.
type Resolver interface {
	Resolve(id string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(id string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(id string) (string, error) { return f(id) }

// Mosaicker builds a raster clipped to bound from a list of sources.
type Mosaicker interface {
	Mosaic(ctx context.Context, sources []string, bound orb.Bound, dst string) error
}

// Assembler builds tile DEMs.
type Assembler struct {
	catalog  catalog.Catalog
	engine   Mosaicker
	resolver Resolver
}

// New creates an Assembler.
func New(c catalog.Catalog, m Mosaicker, r Resolver) *Assembler {
	return &Assembler{catalog: c, engine: m, resolver: r}
}

// Assemble writes the mosaicked DEM of tile into workDir.
func (a *Assembler) Assemble(ctx context.Context, tile grid.TileSpec, workDir string) (Mosaic, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Generating DEM.")

	entries, err := a.catalog.Query(ctx, tile.Bound())
	if err != nil {
		return Mosaic{}, err
	}
	if len(entries) == 0 {
		return Mosaic{}, &NoSourceDataError{TileID: tile.ID}
	}

	sources := make([]string, 0, len(entries))
	for _, e := range entries {
		ref, err := a.resolver.Resolve(e.ID)
		if err != nil {
			return Mosaic{}, fmt.Errorf("failed to resolve source %q: %w", e.ID, err)
		}
		sources = append(sources, ref)
	}
	logger.Debug("Resolved DEM sources.", "count", len(sources))

	dst := filepath.Join(workDir, "dem.tif")
	if err := a.engine.Mosaic(ctx, sources, tile.Bound(), dst); err != nil {
		return Mosaic{}, fmt.Errorf("failed to mosaic DEM for tile %s: %w", tile.ID, err)
	}
	return Mosaic{Path: dst, Tile: tile}, nil
}
