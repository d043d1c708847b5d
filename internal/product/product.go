// Package product defines the derivative products the batch can build and
// the naming rule that ties a published object back to its tile. Key and
// TileIDFromKey are exact inverses: the completion tracker relies on that to
// skip finished tiles.
package product

import (
	"fmt"
	"path"
	"strings"
)

// Kind selects which derivative a job produces.
type Kind string

const (
	Hillshade   Kind = "hillshade"
	ColorRelief Kind = "color-relief"
)

// ParseKind validates a product kind read from configuration.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case Hillshade, ColorRelief:
		return k, nil
	default:
		return "", fmt.Errorf("unknown product kind %q: must be %q or %q", s, Hillshade, ColorRelief)
	}
}

// Extension is the file extension of every published artifact.
const Extension = ".tif"

// Product identifies one published derivative and where it lives.
type Product struct {
	Kind    Kind
	Prefix  string // remote prefix, e.g. "basemap/hillshade"
	Dataset string // source dataset label, e.g. "NASADEM"
	Label   string // product label, e.g. "Hillshade"
}

// Validate checks that the labels cannot break key parsing.
func (p Product) Validate() error {
	if p.Prefix == "" {
		return fmt.Errorf("product %q: prefix is required", p.Kind)
	}
	if p.Dataset == "" || p.Label == "" {
		return fmt.Errorf("product %q: dataset and label are required", p.Kind)
	}
	// The tile id is the trailing two underscore-separated tokens, so
	// neither label may contribute extra separators after the dataset.
	if strings.Contains(p.Label, "_") {
		return fmt.Errorf("product %q: label %q must not contain '_'", p.Kind, p.Label)
	}
	if strings.ContainsAny(p.Dataset+p.Label, "/") {
		return fmt.Errorf("product %q: dataset and label must not contain '/'", p.Kind)
	}
	return nil
}

// Key returns the remote object key of the artifact for a tile:
// "{prefix}/{dataset}_{label}_{tileID}.tif".
func (p Product) Key(tileID string) string {
	name := fmt.Sprintf("%s_%s_%s%s", p.Dataset, p.Label, tileID, Extension)
	return path.Join(strings.TrimSuffix(p.Prefix, "/"), name)
}

// ListPrefix is the prefix to list when looking for published artifacts.
func (p Product) ListPrefix() string {
	return strings.TrimSuffix(p.Prefix, "/") + "/"
}

// TileIDFromKey extracts the tile id embedded in an object key or URL. The
// extension is stripped and the last two '_' separated tokens of the base
// name are joined back together. It reports false for keys that cannot carry
// a tile id.
func TileIDFromKey(key string) (string, bool) {
	base := path.Base(strings.TrimSpace(key))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return "", false
	}
	id := strings.Join(parts[len(parts)-2:], "_")
	if id == "_" {
		return "", false
	}
	return id, true
}
