// Package notify reports tile outcomes to an external listener while the
// batch runs. Notification is best effort: a missing or unreachable listener
// never affects the batch.
package notify

import (
	"context"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
)

// Status is the outcome of one tile.
type Status string

const (
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
	NoData    Status = "no_data"
)

// Event describes a finished tile.
type Event struct {
	Product  string        `json:"product"`
	TileID   string        `json:"tile_id"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Notifier receives tile events. Implementations must be safe for
// concurrent use by the scheduler's workers.
type Notifier interface {
	Notify(ctx context.Context, e Event)
	Close() error
}

// Nop discards events.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}

// Close implements Notifier.
func (Nop) Close() error { return nil }

// Log writes events to the context logger at debug level.
type Log struct{}

// Notify implements Notifier.
func (Log) Notify(ctx context.Context, e Event) {
	ctxlog.FromContext(ctx).Debug("Tile event.", "tile", e.TileID, "status", e.Status, "duration", e.Duration)
}

// Close implements Notifier.
func (Log) Close() error { return nil }
