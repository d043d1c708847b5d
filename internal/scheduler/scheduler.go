package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/dem"
	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/specialistvlad/reliefgrid/internal/notify"
	"github.com/specialistvlad/reliefgrid/internal/tracker"
)

// TileRunner runs the job for one tile. task.Pipeline implements it.
type TileRunner interface {
	Run(ctx context.Context, tile grid.TileSpec) error
}

// Scheduler runs tile jobs on a bounded worker pool.
type Scheduler struct {
	runner   TileRunner
	workers  int
	product  string
	notifier notify.Notifier
	progress *Progress
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the pool size. Values below 1 are raised to 1.
func WithWorkers(n int) Option {
	return func(s *Scheduler) { s.workers = n }
}

// WithNotifier reports every finished tile to n.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithProduct names the product in logs and events.
func WithProduct(name string) Option {
	return func(s *Scheduler) { s.product = name }
}

// WithProgress publishes live counters to p.
func WithProgress(p *Progress) Option {
	return func(s *Scheduler) { s.progress = p }
}

// New creates a Scheduler. The pool defaults to one worker per CPU.
func New(runner TileRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		workers:  runtime.NumCPU(),
		notifier: notify.Nop{},
		progress: &Progress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int { return s.workers }

// Summary is the outcome of a run.
type Summary struct {
	Total     int // tiles in the grid
	Skipped   int // already published before the run
	Succeeded int
	NoData    int // no source data in the catalog
	Failed    int
	Canceled  int // not started because the run was canceled
	Failures  map[string]error
	Duration  time.Duration
}

// Dispatched is the number of tiles handed to workers.
func (s Summary) Dispatched() int {
	return s.Succeeded + s.NoData + s.Failed
}

// Pending returns the tiles whose id is not in done, in their original order.
func Pending(tiles []grid.TileSpec, done tracker.CompletionSet) []grid.TileSpec {
	pending := make([]grid.TileSpec, 0, len(tiles))
	for _, t := range tiles {
		if !done.Has(t.ID) {
			pending = append(pending, t)
		}
	}
	return pending
}

// Run dispatches every pending tile and waits for all of them to settle.
// It always returns a Summary; individual tile failures are recorded there
// and never stop the run.
func (s *Scheduler) Run(ctx context.Context, tiles []grid.TileSpec, done tracker.CompletionSet) Summary {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	pending := Pending(tiles, done)
	sum := &summary{Summary: Summary{
		Total:    len(tiles),
		Skipped:  len(tiles) - len(pending),
		Failures: make(map[string]error),
	}}
	s.progress.start(len(pending))

	logger.Info("🚀 Dispatching tiles.", "product", s.product, "total", len(tiles), "skipped", sum.Skipped, "pending", len(pending), "workers", s.workers)

	queue := make(chan grid.TileSpec)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.worker(ctx, queue, &wg, sum, i)
	}

	for _, t := range pending {
		queue <- t
	}
	close(queue)
	wg.Wait()

	result := sum.snapshot()
	result.Duration = time.Since(start)
	logger.Info("🏁 Dispatch finished.",
		"product", s.product,
		"succeeded", result.Succeeded,
		"no_data", result.NoData,
		"failed", result.Failed,
		"canceled", result.Canceled,
		"duration", result.Duration,
	)
	return result
}

// worker is the processing loop for a single concurrent worker.
func (s *Scheduler) worker(ctx context.Context, queue <-chan grid.TileSpec, wg *sync.WaitGroup, sum *summary, workerID int) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for tile := range queue {
		tileCtx := ctxlog.With(ctx, "workerID", workerID, "tile", tile.ID)
		tileLogger := ctxlog.FromContext(tileCtx)

		if ctx.Err() != nil {
			tileLogger.Debug("Run canceled, skipping tile.")
			sum.canceled()
			s.progress.finish(false)
			continue
		}

		tileLogger.Info("Worker picked up tile.")
		s.progress.begin()
		started := time.Now()
		err := s.runTile(tileCtx, tile)
		elapsed := time.Since(started)
		s.progress.finish(true)

		event := notify.Event{Product: s.product, TileID: tile.ID, Duration: elapsed}
		switch {
		case err == nil:
			tileLogger.Info("Tile succeeded.", "duration", elapsed)
			sum.succeeded()
			event.Status = notify.Succeeded
		case dem.IsNoSourceData(err):
			tileLogger.Info("Tile has no source data, skipping.")
			sum.noData()
			event.Status = notify.NoData
		default:
			tileLogger.Error("Tile failed.", "error", err, "duration", elapsed)
			sum.failed(tile.ID, err)
			event.Status = notify.Failed
			event.Error = err.Error()
		}
		s.notifier.Notify(tileCtx, event)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// runTile is the task boundary: a panicking job fails only its own tile.
func (s *Scheduler) runTile(ctx context.Context, tile grid.TileSpec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tile job panicked: %v", r)
		}
	}()
	return s.runner.Run(ctx, tile)
}

// summary guards a Summary while workers update it.
type summary struct {
	mu sync.Mutex
	Summary
}

func (s *summary) succeeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Succeeded++
}

func (s *summary) noData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NoData++
}

func (s *summary) canceled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Canceled++
}

func (s *summary) failed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
	s.Failures[id] = err
}

func (s *summary) snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.Summary
	out.Failures = make(map[string]error, len(s.Failures))
	for k, v := range s.Failures {
		out.Failures[k] = v
	}
	return out
}
