// Package store abstracts the remote blob store artifacts are published to.
// The batch only ever lists keys under a prefix and puts whole files.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Store is the subset of an object store the batch depends on.
type Store interface {
	// List returns every object key under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Put uploads the local file to key, overwriting any existing object.
	Put(ctx context.Context, localPath, key string) error
	// Close releases any client held by the store.
	Close() error
}

// Backend names accepted in configuration.
const (
	BackendGCS   = "gcs"
	BackendLocal = "local"
	BackendHTTP  = "http"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Bucket   string // gcs bucket name
	Root     string // local root directory
	Endpoint string // bucket URL of an S3-compatible endpoint
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendGCS, "":
		if opts.Bucket == "" {
			return nil, fmt.Errorf("gcs store requires a bucket")
		}
		return NewGCS(ctx, opts.Bucket)
	case BackendLocal:
		if opts.Root == "" {
			return nil, fmt.Errorf("local store requires a root directory")
		}
		return NewDir(opts.Root), nil
	case BackendHTTP:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("http store requires an endpoint")
		}
		return NewHTTP(opts.Endpoint, 0)
	default:
		return nil, fmt.Errorf("unknown store backend: '%s'", opts.Backend)
	}
}
