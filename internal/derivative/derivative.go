// Package derivative turns a tile DEM into the published raster product.
// Each product kind is a Processor; both run a single engine operation and
// write a cloud-optimized GeoTIFF.
package derivative

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/dem"
	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/product"
)

// Artifact is a finished derivative raster waiting to be published.
type Artifact struct {
	Path string
	Kind product.Kind
}

// Processor produces one kind of derivative.
type Processor interface {
	Kind() product.Kind
	Process(ctx context.Context, m dem.Mosaic, workDir string) (Artifact, error)
}

// Shader is the engine operation behind Hillshade.
type Shader interface {
	Hillshade(ctx context.Context, src string, p engine.HillshadeParams, dst string) error
}

// Colorizer is the engine operation behind ColorRelief.
type Colorizer interface {
	ColorMap(ctx context.Context, src, rampFile, dst string) error
}

// DefaultHillshade holds the shading parameters for a DEM in geographic
// coordinates: ten times vertical exaggeration, 111120 meters per degree,
// multidirectional lighting.
var DefaultHillshade = engine.HillshadeParams{
	ZFactor:          10,
	Scale:            111120,
	Multidirectional: true,
}

// Hillshade shades the relief of a DEM.
type Hillshade struct {
	engine Shader
	params engine.HillshadeParams
}

// NewHillshade creates a hillshade processor.
func NewHillshade(e Shader, p engine.HillshadeParams) *Hillshade {
	return &Hillshade{engine: e, params: p}
}

// Kind implements Processor.
func (h *Hillshade) Kind() product.Kind { return product.Hillshade }

// Process implements Processor.
func (h *Hillshade) Process(ctx context.Context, m dem.Mosaic, workDir string) (Artifact, error) {
	ctxlog.FromContext(ctx).Info("Generating hillshade.")

	dst := filepath.Join(workDir, "hillshade.tif")
	if err := h.engine.Hillshade(ctx, m.Path, h.params, dst); err != nil {
		return Artifact{}, fmt.Errorf("failed to shade tile %s: %w", m.Tile.ID, err)
	}
	return Artifact{Path: dst, Kind: product.Hillshade}, nil
}

// ColorRelief colors a DEM with a shared ramp.
type ColorRelief struct {
	engine   Colorizer
	rampFile string
}

// NewColorRelief creates a color-relief processor using the ramp table at
// rampFile, as written by ColorRamp.WriteFile.
func NewColorRelief(e Colorizer, rampFile string) *ColorRelief {
	return &ColorRelief{engine: e, rampFile: rampFile}
}

// Kind implements Processor.
func (c *ColorRelief) Kind() product.Kind { return product.ColorRelief }

// Process implements Processor.
func (c *ColorRelief) Process(ctx context.Context, m dem.Mosaic, workDir string) (Artifact, error) {
	ctxlog.FromContext(ctx).Info("Generating color relief.")

	dst := filepath.Join(workDir, "colored.tif")
	if err := c.engine.ColorMap(ctx, m.Path, c.rampFile, dst); err != nil {
		return Artifact{}, fmt.Errorf("failed to color tile %s: %w", m.Tile.ID, err)
	}
	return Artifact{Path: dst, Kind: product.ColorRelief}, nil
}
