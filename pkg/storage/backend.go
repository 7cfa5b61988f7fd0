package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when a document does not exist in a backend
var ErrNotFound = errors.New("document not found")

// FileInfo represents metadata about a stored document
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	RelativePath string // slash-separated, relative to the backend root
}

// Backend defines the read-only operations needed to load document corpora.
// Implementations include the local filesystem, Google Cloud Storage and an
// in-memory store.
type Backend interface {
	// List returns all entries under path recursively
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a document for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks if a document exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns document metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Close releases any resources held by the backend
	Close() error
}

// GCSScheme prefixes Google Cloud Storage locations
const GCSScheme = "gs://"

// Open returns the backend for location: a gs://bucket/prefix URI or a local
// directory. credentialsFile is only used for GCS and may be empty.
func Open(ctx context.Context, location, credentialsFile string) (Backend, error) {
	if strings.HasPrefix(location, GCSScheme) {
		bucket, prefix := ParseGCSURI(location)
		return NewGCS(ctx, bucket, prefix, credentialsFile)
	}
	return NewLocal(location)
}
