// Package catalog queries the spatial index of elevation source tiles: given
// a bounding box it returns the entries whose footprint intersects it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
)

// Entry is one elevation source tile.
type Entry struct {
	ID    string
	Bound orb.Bound // zero when the feature carries no geometry
}

// Catalog answers bounding box queries.
type Catalog interface {
	Query(ctx context.Context, bound orb.Bound) ([]Entry, error)
}

// Error reports a failed or malformed catalog query.
type Error struct {
	Index string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog query on %s failed: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// VectorInfoer lists the features of a vector dataset within a bounding box
// as JSON. engine.GDAL implements it.
type VectorInfoer interface {
	VectorInfo(ctx context.Context, dataset string, bound orb.Bound) ([]byte, error)
}

// Index is a Catalog backed by a vector tile index read through the engine.
type Index struct {
	engine  VectorInfoer
	dataset string
}

// NewIndex creates a catalog over the given vector dataset, for example a
// FlatGeobuf of source tile footprints.
func NewIndex(engine VectorInfoer, dataset string) *Index {
	return &Index{engine: engine, dataset: dataset}
}

// featureListing is the subset of the engine's JSON info output we read.
type featureListing struct {
	Layers []struct {
		Name     string             `json:"name"`
		Features []*geojson.Feature `json:"features"`
	} `json:"layers"`
}

// Query returns the entries intersecting bound.
func (ix *Index) Query(ctx context.Context, bound orb.Bound) ([]Entry, error) {
	logger := ctxlog.FromContext(ctx)

	out, err := ix.engine.VectorInfo(ctx, ix.dataset, bound)
	if err != nil {
		return nil, &Error{Index: ix.dataset, Err: err}
	}

	var listing featureListing
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, &Error{Index: ix.dataset, Err: fmt.Errorf("malformed feature listing: %w", err)}
	}
	if len(listing.Layers) == 0 {
		return nil, &Error{Index: ix.dataset, Err: fmt.Errorf("feature listing has no layers")}
	}

	entries, err := toEntries(listing.Layers[0].Features, bound)
	if err != nil {
		return nil, &Error{Index: ix.dataset, Err: err}
	}
	logger.Debug("Catalog query finished.", "features", len(listing.Layers[0].Features), "entries", len(entries))
	return entries, nil
}

func toEntries(features []*geojson.Feature, bound orb.Bound) ([]Entry, error) {
	entries := make([]Entry, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for i, f := range features {
		if f == nil {
			continue
		}
		id, err := featureID(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		e := Entry{ID: id}
		if f.Geometry != nil {
			e.Bound = f.Geometry.Bound()
			// The engine filters by envelope already; this also keeps a
			// catalog that ignores the filter from pulling the whole index.
			if !e.Bound.Intersects(bound) {
				continue
			}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, e)
	}
	return entries, nil
}

func featureID(f *geojson.Feature) (string, error) {
	switch v := f.Properties["id"].(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty 'id' property")
		}
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("missing 'id' property")
	default:
		return "", fmt.Errorf("unsupported 'id' property type %T", v)
	}
}
