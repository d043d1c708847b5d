package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/catalog"
	"github.com/specialistvlad/reliefgrid/internal/dem"
	"github.com/specialistvlad/reliefgrid/internal/derivative"
	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/grid"
	"github.com/specialistvlad/reliefgrid/internal/notify"
	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/specialistvlad/reliefgrid/internal/publish"
	"github.com/specialistvlad/reliefgrid/internal/task"
	"github.com/specialistvlad/reliefgrid/internal/testutil"
	"github.com/specialistvlad/reliefgrid/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var colorRelief = product.Product{
	Kind:    product.ColorRelief,
	Prefix:  "basemap/color_relief",
	Dataset: "NASADEM",
	Label:   "Color-Relief",
}

// newPipeline wires the real tile pipeline around a fake engine and store.
func newPipeline(t *testing.T, eng *testutil.FakeEngine, s *testutil.MemStore) *task.Pipeline {
	t.Helper()
	gdal := engine.NewGDAL(eng, "gdal", engine.DefaultOutput)
	resolver := dem.ResolverFunc(func(id string) (string, error) {
		return "/vsicurl/https://example.com/" + id + ".tif", nil
	})
	return task.NewPipeline(
		dem.New(catalog.NewIndex(gdal, "index.fgb"), gdal, resolver),
		derivative.NewColorRelief(gdal, "/tmp/color.txt"),
		publish.New(s, colorRelief),
		t.TempDir(),
	)
}

func listDone(t *testing.T, s *testutil.MemStore) tracker.CompletionSet {
	t.Helper()
	done, err := tracker.New(s, colorRelief).ListDone(context.Background())
	require.NoError(t, err)
	return done
}

func TestPending(t *testing.T) {
	tiles := grid.Tiles()
	done := tracker.CompletionSet{"-180X_-90Y": {}, "170X_080Y": {}}

	pending := Pending(tiles, done)

	require.Len(t, pending, len(tiles)-2)
	require.Equal(t, "-180X_-80Y", pending[0].ID)
	for _, p := range pending {
		require.False(t, done.Has(p.ID))
	}
}

func TestNew_Workers(t *testing.T) {
	assert.Equal(t, 1, New(nil, WithWorkers(0)).Workers())
	assert.Equal(t, 1, New(nil, WithWorkers(-3)).Workers())
	assert.Equal(t, 7, New(nil, WithWorkers(7)).Workers())
	assert.GreaterOrEqual(t, New(nil).Workers(), 1)
}

func TestRun_SecondRunDispatchesNothing(t *testing.T) {
	eng := &testutil.FakeEngine{}
	s := testutil.NewMemStore()
	sched := New(newPipeline(t, eng, s), WithWorkers(8))
	tiles := grid.Tiles()

	first := sched.Run(context.Background(), tiles, listDone(t, s))
	require.Equal(t, len(tiles), first.Succeeded)
	require.Zero(t, first.Failed)
	require.Len(t, s.Puts(), len(tiles))

	commandsAfterFirst := len(eng.Commands())
	second := sched.Run(context.Background(), tiles, listDone(t, s))

	require.Zero(t, second.Dispatched())
	require.Equal(t, len(tiles), second.Skipped)
	require.Len(t, eng.Commands(), commandsAfterFirst, "no engine call expected on the second run")
	require.Len(t, s.Puts(), len(tiles))
}

func TestRun_OneFailingTileDoesNotAffectOthers(t *testing.T) {
	eng := &testutil.FakeEngine{
		Fail: func(cmd engine.Command, tileID string) bool {
			return tileID == "170X_080Y" && cmd.Op == "color-map"
		},
	}
	s := testutil.NewMemStore()
	tiles := grid.Tiles()

	var sum Summary
	require.NotPanics(t, func() {
		sum = New(newPipeline(t, eng, s), WithWorkers(4)).Run(context.Background(), tiles, tracker.CompletionSet{})
	})

	require.Equal(t, 1, sum.Failed)
	require.Equal(t, len(tiles)-1, sum.Succeeded)
	require.Contains(t, sum.Failures, "170X_080Y")
	var engErr *engine.Error
	require.ErrorAs(t, sum.Failures["170X_080Y"], &engErr)

	done := listDone(t, s)
	require.Equal(t, len(tiles)-1, done.Len())
	require.False(t, done.Has("170X_080Y"))

	// A second run retries only the failed tile.
	eng.Fail = nil
	retry := New(newPipeline(t, eng, s), WithWorkers(4)).Run(context.Background(), tiles, listDone(t, s))
	require.Equal(t, 1, retry.Succeeded)
	require.Equal(t, len(tiles)-1, retry.Skipped)
}

func TestRun_NoSourceDataSkipsTile(t *testing.T) {
	eng := &testutil.FakeEngine{EmptyTiles: map[string]bool{"-150X_-40Y": true}}
	s := testutil.NewMemStore()
	tiles := []grid.TileSpec{}
	for _, id := range []string{"-150X_-40Y", "000X_000Y", "010X_040Y"} {
		tile, ok := grid.Lookup(id)
		require.True(t, ok)
		tiles = append(tiles, tile)
	}

	sum := New(newPipeline(t, eng, s), WithWorkers(2)).Run(context.Background(), tiles, tracker.CompletionSet{})

	require.Equal(t, 1, sum.NoData)
	require.Equal(t, 2, sum.Succeeded)
	require.Zero(t, sum.Failed)
	_, published := s.Object(colorRelief.Key("-150X_-40Y"))
	require.False(t, published)
	require.Equal(t, []string{"vector-info"}, eng.CommandsFor("-150X_-40Y"))
}

func TestRun_ConcurrencyIsBounded(t *testing.T) {
	const workers = 3
	eng := &testutil.FakeEngine{Delay: 10 * time.Millisecond}
	s := testutil.NewMemStore()
	tiles := grid.Tiles()[:12]

	sum := New(newPipeline(t, eng, s), WithWorkers(workers)).Run(context.Background(), tiles, tracker.CompletionSet{})

	require.Equal(t, len(tiles), sum.Succeeded)
	require.LessOrEqual(t, eng.MaxConcurrent(), workers)
	require.GreaterOrEqual(t, eng.MaxConcurrent(), 1)
}

type runnerFunc func(ctx context.Context, tile grid.TileSpec) error

func (f runnerFunc) Run(ctx context.Context, tile grid.TileSpec) error { return f(ctx, tile) }

func TestRun_PanicIsContained(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, tile grid.TileSpec) error {
		if tile.ID == "000X_000Y" {
			panic("boom")
		}
		return nil
	})
	tiles := grid.Tiles()

	sum := New(runner, WithWorkers(4)).Run(context.Background(), tiles, tracker.CompletionSet{})

	require.Equal(t, 1, sum.Failed)
	require.Equal(t, len(tiles)-1, sum.Succeeded)
	require.ErrorContains(t, sum.Failures["000X_000Y"], "panicked")
}

func TestRun_CanceledContext(t *testing.T) {
	var calls int
	var mu sync.Mutex
	runner := runnerFunc(func(context.Context, grid.TileSpec) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := New(runner, WithWorkers(2)).Run(ctx, grid.Tiles(), tracker.CompletionSet{})

	require.Zero(t, calls)
	require.Equal(t, grid.Count(), sum.Canceled)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) Close() error { return nil }

func TestRun_NotifiesAndTracksProgress(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, tile grid.TileSpec) error {
		switch tile.ID {
		case "000X_000Y":
			return &dem.NoSourceDataError{TileID: tile.ID}
		case "010X_000Y":
			return errors.New("boom")
		}
		return nil
	})
	var tiles []grid.TileSpec
	for _, id := range []string{"000X_000Y", "010X_000Y", "020X_000Y"} {
		tile, _ := grid.Lookup(id)
		tiles = append(tiles, tile)
	}
	n := &recordingNotifier{}
	p := &Progress{}

	New(runner, WithNotifier(n), WithProgress(p), WithProduct("color-relief")).Run(context.Background(), tiles, tracker.CompletionSet{})

	got := map[string]notify.Status{}
	for _, e := range n.events {
		require.Equal(t, "color-relief", e.Product)
		got[e.TileID] = e.Status
	}
	require.Equal(t, map[string]notify.Status{
		"000X_000Y": notify.NoData,
		"010X_000Y": notify.Failed,
		"020X_000Y": notify.Succeeded,
	}, got)
	require.Equal(t, ProgressSnapshot{Pending: 0, Running: 0, Settled: 3}, p.Snapshot())
}

func TestRun_WorkingDirectoriesRemoved(t *testing.T) {
	eng := &testutil.FakeEngine{
		Fail: func(cmd engine.Command, tileID string) bool { return tileID == "000X_000Y" },
	}
	s := testutil.NewMemStore()
	root := t.TempDir()
	gdal := engine.NewGDAL(eng, "gdal", engine.DefaultOutput)
	pipeline := task.NewPipeline(
		dem.New(catalog.NewIndex(gdal, "index.fgb"), gdal, dem.ResolverFunc(func(id string) (string, error) {
			return fmt.Sprintf("/src/%s.tif", id), nil
		})),
		derivative.NewHillshade(gdal, derivative.DefaultHillshade),
		publish.New(s, colorRelief),
		root,
	)

	New(pipeline, WithWorkers(4)).Run(context.Background(), grid.Tiles()[:40], tracker.CompletionSet{})

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}
