package scheduler

import "sync/atomic"

// Progress exposes live counters of a run, read by the healthcheck server
// while workers update them.
type Progress struct {
	pending atomic.Int64
	running atomic.Int64
	settled atomic.Int64
}

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	Pending int64 `json:"pending"`
	Running int64 `json:"running"`
	Settled int64 `json:"settled"`
}

// Snapshot reads the counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Pending: p.pending.Load(),
		Running: p.running.Load(),
		Settled: p.settled.Load(),
	}
}

func (p *Progress) start(pending int) {
	p.pending.Add(int64(pending))
}

func (p *Progress) begin() {
	p.running.Add(1)
}

// finish settles one tile. began is false for a tile that was canceled
// before it started.
func (p *Progress) finish(began bool) {
	if began {
		p.running.Add(-1)
	}
	p.pending.Add(-1)
	p.settled.Add(1)
}
