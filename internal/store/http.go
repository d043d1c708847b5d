package store

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
)

// HTTP is a Store for S3-compatible endpoints (S3, MinIO, the GCS XML API).
// Objects are uploaded with a plain PUT and listed with ListObjectsV2.
// Requests are not signed: the endpoint must accept them as is, e.g. through
// a signing proxy or a bucket policy.
type HTTP struct {
	client   *http.Client
	endpoint string // bucket URL without trailing slash
}

// NewHTTP creates a store for the bucket at endpoint. A zero timeout means
// no client-side limit, which suits large uploads.
func NewHTTP(endpoint string, timeout time.Duration) (*HTTP, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store endpoint %q must be an http(s) URL", endpoint)
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &HTTP{client: client, endpoint: strings.TrimSuffix(endpoint, "/")}, nil
}

// listBucketResult is the subset of a ListObjectsV2 response we read.
type listBucketResult struct {
	IsTruncated           bool   `xml:"IsTruncated"`
	NextContinuationToken string `xml:"NextContinuationToken"`
	Contents              []struct {
		Key string `xml:"Key"`
	} `xml:"Contents"`
}

// List pages through ListObjectsV2 until the listing is complete.
func (h *HTTP) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	token := ""
	for {
		q := url.Values{"list-type": {"2"}, "prefix": {prefix}}
		if token != "" {
			q.Set("continuation-token", token)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create list request: %w", err)
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		var page listBucketResult
		err = decodeListing(resp, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, c := range page.Contents {
			keys = append(keys, c.Key)
		}
		if !page.IsTruncated || page.NextContinuationToken == "" {
			return keys, nil
		}
		token = page.NextContinuationToken
	}
}

func decodeListing(resp *http.Response, page *listBucketResult) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return xml.NewDecoder(resp.Body).Decode(page)
}

// Put uploads the local file to key.
func (h *HTTP) Put(ctx context.Context, localPath, key string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", localPath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", localPath, err)
	}

	target := h.endpoint + "/" + (&url.URL{Path: key}).EscapedPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType(localPath))
	req.ContentLength = stat.Size()

	logger.Debug("Uploading file", "source", localPath, "key", key, "size", stat.Size())

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload of '%s' failed with status: %s", key, resp.Status)
	}
	return nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
