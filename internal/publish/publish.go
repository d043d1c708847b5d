// Package publish uploads finished artifacts under their deterministic key.
package publish

import (
	"context"
	"fmt"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/specialistvlad/reliefgrid/internal/store"
)

// Error reports a failed upload.
type Error struct {
	TileID string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publishing tile %s to %s failed: %v", e.TileID, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Publisher uploads artifacts of one product.
type Publisher struct {
	store   store.Store
	product product.Product
}

// New creates a Publisher.
func New(s store.Store, p product.Product) *Publisher {
	return &Publisher{store: s, product: p}
}

// Publish uploads the artifact at path as the tile's object. The key is
// product.Key(tileID), so re-publishing a tile overwrites the same object.
func (p *Publisher) Publish(ctx context.Context, path, tileID string) error {
	key := p.product.Key(tileID)
	logger := ctxlog.FromContext(ctx)

	if err := p.store.Put(ctx, path, key); err != nil {
		return &Error{TileID: tileID, Key: key, Err: err}
	}
	logger.Info("Published artifact.", "key", key)
	return nil
}
