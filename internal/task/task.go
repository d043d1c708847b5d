// Package task runs the work for a single tile: assemble the DEM, derive
// the product, publish it. Each run owns a private working directory that is
// removed when the run ends, whether it succeeded or not.
package task

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/dem"
	"github.com/specialistvlad/reliefgrid/internal/derivative"
	"github.com/specialistvlad/reliefgrid/internal/grid"
)

// Assembler builds the DEM of a tile. dem.Assembler implements it.
type Assembler interface {
	Assemble(ctx context.Context, tile grid.TileSpec, workDir string) (dem.Mosaic, error)
}

// Publisher uploads a finished artifact. publish.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, path, tileID string) error
}

// Pipeline is the per-tile job. It holds no per-tile state and is shared by
// all workers.
type Pipeline struct {
	assembler Assembler
	processor derivative.Processor
	publisher Publisher
	tempRoot  string // parent of per-tile working dirs; "" means os.TempDir()
}

// NewPipeline wires the three stages together.
func NewPipeline(a Assembler, p derivative.Processor, pub Publisher, tempRoot string) *Pipeline {
	return &Pipeline{assembler: a, processor: p, publisher: pub, tempRoot: tempRoot}
}

// Run executes the job for one tile.
func (p *Pipeline) Run(ctx context.Context, tile grid.TileSpec) error {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	workDir, err := os.MkdirTemp(p.tempRoot, "tile-"+tile.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			logger.Warn("Failed to remove working directory.", "dir", workDir, "error", rmErr)
		}
	}()
	logger.Debug("Tile job started.", "workDir", workDir, "product", p.processor.Kind())

	mosaic, err := p.assembler.Assemble(ctx, tile, workDir)
	if err != nil {
		return err
	}

	artifact, err := p.processor.Process(ctx, mosaic, workDir)
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(ctx, artifact.Path, tile.ID); err != nil {
		return err
	}

	logger.Debug("Tile job finished.", "duration", time.Since(start))
	return nil
}
