package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/grid"
)

// FakeEngine is an instrumented engine.Runner. It answers catalog queries
// with one source feature per tile, writes a placeholder file for every
// raster operation, and counts how many commands are in flight at once.
type FakeEngine struct {
	// Delay is how long each command blocks, to make overlap observable.
	Delay time.Duration
	// EmptyTiles lists tile ids whose catalog query returns no features.
	EmptyTiles map[string]bool
	// Fail reports whether a command should exit non-zero. tileID is
	// derived from the command's bbox or working directory.
	Fail func(cmd engine.Command, tileID string) bool

	mu       sync.Mutex
	commands []engine.Command

	inFlight      atomic.Int64
	maxConcurrent atomic.Int64
}

// Run implements engine.Runner.
func (f *FakeEngine) Run(ctx context.Context, cmd engine.Command) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxConcurrent.Load()
		if n <= cur || f.maxConcurrent.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	tileID := TileIDOf(cmd)
	if f.Fail != nil && f.Fail(cmd, tileID) {
		return nil, &engine.Error{Op: cmd.Op, Command: cmd.String(), ExitCode: 1, Stderr: "injected", Err: ErrInjected}
	}

	if cmd.Op == "vector-info" {
		if f.EmptyTiles[tileID] {
			return []byte(`{"layers":[{"name":"tiles","features":[]}]}`), nil
		}
		return []byte(fmt.Sprintf(`{"layers":[{"name":"tiles","features":[
			{"type":"Feature","properties":{"id":"src_%s"},"geometry":null}]}]}`, tileID)), nil
	}

	if out := argAfter(cmd.Args, "-o"); out != "" {
		if err := os.WriteFile(out, []byte(cmd.Op+" "+tileID), 0644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// MaxConcurrent is the highest number of commands observed running at once.
func (f *FakeEngine) MaxConcurrent() int {
	return int(f.maxConcurrent.Load())
}

// Commands returns a copy of every command run so far.
func (f *FakeEngine) Commands() []engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Command(nil), f.commands...)
}

// CommandsFor returns the ops run for a tile, in order.
func (f *FakeEngine) CommandsFor(tileID string) []string {
	var ops []string
	for _, c := range f.Commands() {
		if TileIDOf(c) == tileID {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// TileIDOf recovers the tile a command belongs to, from its --bbox argument
// or from a "tile-<id>-*" working directory in its output path.
func TileIDOf(cmd engine.Command) string {
	for _, a := range cmd.Args {
		if bbox, ok := strings.CutPrefix(a, "--bbox="); ok {
			parts := strings.Split(bbox, ",")
			if len(parts) != 4 {
				return ""
			}
			x, errX := strconv.ParseFloat(parts[0], 64)
			y, errY := strconv.ParseFloat(parts[1], 64)
			if errX != nil || errY != nil {
				return ""
			}
			return grid.FormatID(int(x), int(y))
		}
	}
	if out := argAfter(cmd.Args, "-o"); out != "" {
		dir := filepath.Base(filepath.Dir(out))
		if rest, ok := strings.CutPrefix(dir, "tile-"); ok {
			if i := strings.LastIndex(rest, "-"); i > 0 {
				return rest[:i]
			}
		}
	}
	return ""
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
