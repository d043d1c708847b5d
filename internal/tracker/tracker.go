// Package tracker learns which tiles already have a published artifact so
// that a re-run only dispatches the rest.
//
// The listing is taken once, before any tile is dispatched. A failed listing
// is not fatal: the tracker falls back to an empty set and every tile is
// treated as pending. Publishing is an overwrite under a deterministic key,
// so redoing a finished tile is safe.
package tracker

import (
	"context"
	"fmt"

	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/specialistvlad/reliefgrid/internal/store"
)

// CompletionSet is the set of tile ids already published for a product.
// It is not modified after ListDone returns.
type CompletionSet map[string]struct{}

// Has reports whether the tile is already published.
func (s CompletionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of published tiles.
func (s CompletionSet) Len() int { return len(s) }

// Error is returned alongside the empty fallback set when the remote listing
// could not be read.
type Error struct {
	Prefix string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion listing of %q failed: %v", e.Prefix, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Tracker lists a product's published artifacts.
type Tracker struct {
	store   store.Store
	product product.Product
}

// New creates a tracker for one product.
func New(s store.Store, p product.Product) *Tracker {
	return &Tracker{store: s, product: p}
}

// ListDone returns the ids of tiles whose artifact already exists. The set is
// never nil. When the listing fails the set is empty and the error is a
// *Error describing why; callers log it and carry on.
func (t *Tracker) ListDone(ctx context.Context) (CompletionSet, error) {
	done := make(CompletionSet)

	prefix := t.product.ListPrefix()
	keys, err := t.store.List(ctx, prefix)
	if err != nil {
		return done, &Error{Prefix: prefix, Err: err}
	}

	for _, key := range keys {
		if id, ok := product.TileIDFromKey(key); ok {
			done[id] = struct{}{}
		}
	}
	return done, nil
}
