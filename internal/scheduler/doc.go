// Package scheduler dispatches tile jobs to a fixed pool of workers.
//
// # How It Works
//
// The scheduler is handed the full tile list and the completion snapshot
// taken before dispatch. It follows a simple cycle:
//  1. Filter the tiles already published out of the list.
//  2. Start N workers that read tiles from a shared channel.
//  3. Feed every pending tile into the channel, then close it.
//  4. Wait for all workers to drain the channel and exit.
//
// # Failure Isolation
//
// Each job runs behind a boundary that turns both returned errors and panics
// into a per-tile outcome. A failed tile is logged with its id and counted in
// the Summary; it never cancels or blocks its siblings, and Run itself never
// fails. Failed tiles are not retried within a run. Running the batch again is
// the retry: the completion tracker skips the tiles that succeeded.
//
// # Ordering
//
// Tiles are fed in grid order but may finish in any order. The completion
// snapshot is read-only for the whole run.
package scheduler
