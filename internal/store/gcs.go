package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS is a Store backed by a Google Cloud Storage bucket. Credentials come
// from the environment (application default credentials).
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCS creates a client for the named bucket. opts are passed to the
// storage client, e.g. to point it at an emulator.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

// List returns the names of all objects under prefix.
func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", g.name, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Put streams the local file into the object named key.
func (g *GCS) Put(ctx context.Context, localPath, key string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", localPath, err)
	}
	defer file.Close()

	// Close commits whatever the writer has received. A failed upload is
	// abandoned by canceling the writer's context so no partial object
	// appears under key.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.bucket.Object(key).NewWriter(wctx)
	w.ContentType = contentType(localPath)

	logger.Debug("Uploading file to GCS", "source", localPath, "bucket", g.name, "key", key)
	n, err := io.Copy(w, file)
	if err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("failed to upload '%s' to gs://%s/%s: %w", localPath, g.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", g.name, key, err)
	}
	logger.Debug("Successfully uploaded file", "bytes", n)
	return nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
