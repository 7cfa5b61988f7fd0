package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS reads documents from a Google Cloud Storage bucket under a prefix
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// ParseGCSURI splits gs://bucket/some/prefix into bucket and prefix.
// The prefix never has a trailing slash.
func ParseGCSURI(uri string) (bucket, prefix string) {
	rest := strings.TrimPrefix(uri, GCSScheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, strings.Trim(prefix, "/")
}

// NewGCS creates a GCS backend. Without credentialsFile the client uses
// application default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is empty")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return newGCS(client, bucket, prefix), nil
}

func newGCS(client *storage.Client, bucket, prefix string) *GCS {
	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// object returns the full object name for a relative path
func (g *GCS) object(path string) string {
	path = strings.TrimPrefix(path, "/")
	if g.prefix == "" {
		return path
	}
	if path == "" {
		return g.prefix
	}
	return g.prefix + "/" + path
}

// relative strips the backend prefix from an object name
func (g *GCS) relative(name string) string {
	if g.prefix == "" {
		return name
	}
	return strings.TrimPrefix(strings.TrimPrefix(name, g.prefix), "/")
}

// List returns every object under path. Directory placeholder objects
// (names ending in "/") are reported with IsDir set.
func (g *GCS) List(ctx context.Context, path string) ([]FileInfo, error) {
	query := &storage.Query{Prefix: g.object(path)}
	if query.Prefix != "" && !strings.HasSuffix(query.Prefix, "/") {
		query.Prefix += "/"
	}

	var files []FileInfo
	it := g.bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", g.name, query.Prefix, err)
		}

		files = append(files, FileInfo{
			Path:         GCSScheme + g.name + "/" + attrs.Name,
			Size:         attrs.Size,
			ModTime:      attrs.Updated,
			IsDir:        strings.HasSuffix(attrs.Name, "/"),
			RelativePath: strings.TrimSuffix(g.relative(attrs.Name), "/"),
		})
	}

	return files, nil
}

// Read opens an object for reading
func (g *GCS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := g.bucket.Object(g.object(path)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("failed to open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", g.name, g.object(path), err)
	}
	return r, nil
}

// Exists checks if an object exists
func (g *GCS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.bucket.Object(g.object(path)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns object metadata
func (g *GCS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	attrs, err := g.bucket.Object(g.object(path)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return &FileInfo{
		Path:         GCSScheme + g.name + "/" + attrs.Name,
		Size:         attrs.Size,
		ModTime:      attrs.Updated,
		RelativePath: g.relative(attrs.Name),
	}, nil
}

// Close releases the underlying client
func (g *GCS) Close() error {
	return g.client.Close()
}
