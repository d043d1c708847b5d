package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Output describes how rasters are encoded.
type Output struct {
	Format      string // GDAL driver, e.g. "COG"
	Compression string // COMPRESS creation option, e.g. "ZSTD"
	CRS         string // reference system of every tile DEM, e.g. "EPSG:4326"
}

// ReferenceCRS is the coordinate system tile DEMs are warped to. Tile bounds
// are expressed in it.
const ReferenceCRS = "EPSG:4326"

// DefaultOutput is cloud-optimized GeoTIFF with ZSTD compression in
// geographic coordinates.
var DefaultOutput = Output{Format: "COG", Compression: "ZSTD", CRS: ReferenceCRS}

func (o Output) args() []string {
	args := []string{"--of=" + o.Format}
	if o.Compression != "" {
		args = append(args, "--co=COMPRESS="+o.Compression)
	}
	return args
}

// HillshadeParams are the relief-shading parameters.
type HillshadeParams struct {
	ZFactor          float64
	Scale            float64 // ground units per degree for geographic rasters
	Multidirectional bool
}

// GDAL exposes the raster engine operations the pipeline needs. Each one
// is a single invocation of the gdal command line program.
type GDAL struct {
	runner  Runner
	program string
	output  Output
}

// NewGDAL creates the engine facade. An empty program defaults to "gdal".
func NewGDAL(runner Runner, program string, output Output) *GDAL {
	if program == "" {
		program = "gdal"
	}
	if output.Format == "" {
		output.Format = DefaultOutput.Format
		output.Compression = DefaultOutput.Compression
	}
	if output.CRS == "" {
		output.CRS = ReferenceCRS
	}
	return &GDAL{runner: runner, program: program, output: output}
}

// Mosaic combines the source rasters into dst, warped to the reference
// system and clipped to bound. The sources are first gathered into a virtual
// raster next to dst, listed through a file, then reprojected in one pass so
// sources in any system line up on the same tile.
func (g *GDAL) Mosaic(ctx context.Context, sources []string, bound orb.Bound, dst string) error {
	if len(sources) == 0 {
		return fmt.Errorf("mosaic requires at least one source")
	}
	dir := filepath.Dir(dst)
	listFile := filepath.Join(dir, "paths.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(sources, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to write mosaic source list: %w", err)
	}

	vrt := filepath.Join(dir, "dem.vrt")
	mosaic := []string{"raster", "mosaic", "--of=VRT", "-i", "@" + listFile, "-o", vrt}
	if _, err := g.runner.Run(ctx, Command{Op: "mosaic", Program: g.program, Args: mosaic}); err != nil {
		return err
	}

	warp := []string{
		"raster", "reproject",
		"--dst-crs=" + g.output.CRS,
		"--bbox=" + formatBound(bound),
	}
	warp = append(warp, g.output.args()...)
	warp = append(warp, "-i", vrt, "-o", dst)

	_, err := g.runner.Run(ctx, Command{Op: "reproject", Program: g.program, Args: warp})
	return err
}

// ColorMap colors src with the ramp table in rampFile and writes dst.
func (g *GDAL) ColorMap(ctx context.Context, src, rampFile, dst string) error {
	args := []string{"raster", "color-map", "--color-map=" + rampFile}
	args = append(args, g.output.args()...)
	args = append(args, "-i", src, "-o", dst)

	_, err := g.runner.Run(ctx, Command{Op: "color-map", Program: g.program, Args: args})
	return err
}

// Hillshade shades src and writes dst.
func (g *GDAL) Hillshade(ctx context.Context, src string, p HillshadeParams, dst string) error {
	args := []string{
		"raster", "hillshade",
		"--zfactor=" + formatFloat(p.ZFactor),
		"--xscale=" + formatFloat(p.Scale),
		"--yscale=" + formatFloat(p.Scale),
	}
	if p.Multidirectional {
		args = append(args, "--variant=multidirectional")
	}
	args = append(args, g.output.args()...)
	args = append(args, "-i", src, "-o", dst)

	_, err := g.runner.Run(ctx, Command{Op: "hillshade", Program: g.program, Args: args})
	return err
}

// VectorInfo returns the JSON feature listing of the features in dataset
// that intersect bound.
func (g *GDAL) VectorInfo(ctx context.Context, dataset string, bound orb.Bound) ([]byte, error) {
	args := []string{
		"vector", "pipeline",
		"!", "read", dataset,
		"!", "filter", "--bbox=" + formatBound(bound),
		"!", "info", "--format=json", "--features",
	}
	return g.runner.Run(ctx, Command{Op: "vector-info", Program: g.program, Args: args})
}

func formatBound(b orb.Bound) string {
	return strings.Join([]string{
		formatFloat(b.Min[0]), formatFloat(b.Min[1]),
		formatFloat(b.Max[0]), formatFloat(b.Max[1]),
	}, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
