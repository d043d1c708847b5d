package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/specialistvlad/reliefgrid/internal/model"
)

// loadJobs reads the job files and keeps the jobs selected on the command line.
func (app *App) loadJobs(ctx context.Context) ([]*model.Job, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading jobs...", "config_path", app.config.ConfigPath)

	jobs, err := model.LoadJobsWithEnv(ctx, app.config.ConfigPath, app.env)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	jobs, err = model.Select(jobs, app.config.Jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}

	logger.Info("Jobs loaded successfully.", "jobs_found", len(jobs))
	return jobs, nil
}

// selectTiles returns the whole grid, or only the tiles named on the command
// line, in grid order.
func (app *App) selectTiles() ([]grid.TileSpec, error) {
	all := grid.Tiles()
	if len(app.config.Tiles) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(app.config.Tiles))
	for _, id := range app.config.Tiles {
		if _, ok := grid.Lookup(id); !ok {
			return nil, fmt.Errorf("unknown tile '%s'", id)
		}
		wanted[id] = true
	}
	tiles := make([]grid.TileSpec, 0, len(wanted))
	for _, t := range all {
		if wanted[t.ID] {
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}
