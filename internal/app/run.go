package app

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/specialistvlad/reliefgrid/internal/catalog"
	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/dem"
	"github.com/specialistvlad/reliefgrid/internal/derivative"
	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/specialistvlad/reliefgrid/internal/model"
	"github.com/specialistvlad/reliefgrid/internal/notify"
	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/specialistvlad/reliefgrid/internal/publish"
	"github.com/specialistvlad/reliefgrid/internal/scheduler"
	"github.com/specialistvlad/reliefgrid/internal/task"
	"github.com/specialistvlad/reliefgrid/internal/tracker"
)

// Run executes every selected job in turn. Tile failures are reported in the
// logs and in Summaries; only startup errors (configuration, store client,
// working directory) are returned. A canceled context stops dispatching new
// tiles and skips the remaining jobs.
func (app *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx
	app.logger.Debug("App.Run method started.")

	jobs, err := app.loadJobs(ctx)
	if err != nil {
		return err
	}
	tiles, err := app.selectTiles()
	if err != nil {
		return err
	}

	app.healthCheckServer()
	defer app.closeHealthCheckServer()

	for _, job := range jobs {
		if ctx.Err() != nil {
			app.logger.Warn("Run canceled, skipping remaining jobs.", "next_job", job.Name)
			break
		}
		sum, err := app.runJob(ctx, job, tiles)
		if err != nil {
			return fmt.Errorf("job '%s': %w", job.Name, err)
		}
		app.recordSummary(job.Name, sum)
	}

	app.logger.Debug("App.Run method finished.")
	return nil
}

// runJob builds the per-tile pipeline for one job and dispatches the grid.
func (app *App) runJob(ctx context.Context, job *model.Job, tiles []grid.TileSpec) (scheduler.Summary, error) {
	logger := ctxlog.FromContext(ctx).With("job", job.Name, "product", job.Product.Kind)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("🚀 Starting job.", "prefix", job.Product.ListPrefix(), "tiles", len(tiles), "file", job.FSInformation.FilePath)

	st, err := app.openStore(ctx, job.Store)
	if err != nil {
		return scheduler.Summary{}, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	done, err := tracker.New(st, job.Product).ListDone(ctx)
	if err != nil {
		logger.Warn("Could not list published tiles, every tile will be processed.", "error", err)
	}

	workDir, err := os.MkdirTemp(app.config.TempDir, "reliefgrid-"+job.Name+"-*")
	if err != nil {
		return scheduler.Summary{}, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	gdal := engine.NewGDAL(app.runner, job.Binary, job.Output)
	proc, err := newProcessor(job, gdal, workDir)
	if err != nil {
		return scheduler.Summary{}, err
	}

	notifier := app.notifier(ctx, job)
	defer notifier.Close()

	pipeline := task.NewPipeline(
		dem.New(catalog.NewIndex(gdal, job.Index), gdal, job.Source),
		proc,
		publish.New(st, job.Product),
		workDir,
	)

	opts := []scheduler.Option{
		scheduler.WithNotifier(notifier),
		scheduler.WithProgress(app.progress),
		scheduler.WithProduct(string(job.Product.Kind)),
	}
	if n := app.workers(job); n > 0 {
		opts = append(opts, scheduler.WithWorkers(n))
	}

	sum := scheduler.New(pipeline, opts...).Run(ctx, tiles, done)
	logSummary(ctx, sum)
	return sum, nil
}

// workers prefers the command line, then the job file. 0 means the
// scheduler default.
func (app *App) workers(job *model.Job) int {
	if app.config.WorkerCount > 0 {
		return app.config.WorkerCount
	}
	return job.Workers
}

// newProcessor builds the derivative stage. Color-relief writes its ramp
// once into the job's working directory; every worker reads the same file.
func newProcessor(job *model.Job, gdal *engine.GDAL, workDir string) (derivative.Processor, error) {
	switch job.Product.Kind {
	case product.Hillshade:
		return derivative.NewHillshade(gdal, job.Hillshade), nil
	case product.ColorRelief:
		if job.Ramp == nil {
			return nil, fmt.Errorf("color-relief job has no color ramp")
		}
		rampFile, err := job.Ramp.WriteFile(workDir)
		if err != nil {
			return nil, err
		}
		return derivative.NewColorRelief(gdal, rampFile), nil
	default:
		return nil, fmt.Errorf("unsupported product kind '%s'", job.Product.Kind)
	}
}

// notifier connects the job's progress notifier. Progress events are
// best-effort: a connection failure falls back to logging them.
func (app *App) notifier(ctx context.Context, job *model.Job) notify.Notifier {
	if job.Notify == nil {
		return notify.Nop{}
	}
	n, err := app.newNotifier(ctx, *job.Notify)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Progress notifier unavailable, logging events instead.", "error", err)
		return notify.Log{}
	}
	return n
}

func logSummary(ctx context.Context, sum scheduler.Summary) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🏁 Job finished.",
		"total", sum.Total,
		"skipped", sum.Skipped,
		"succeeded", sum.Succeeded,
		"no_data", sum.NoData,
		"failed", sum.Failed,
		"canceled", sum.Canceled,
		"duration", sum.Duration,
	)

	ids := make([]string, 0, len(sum.Failures))
	for id := range sum.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		logger.Warn("Tile failed, it will be retried on the next run.", "tile", id, "error", sum.Failures[id])
	}
}
