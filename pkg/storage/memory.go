package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory backend holding documents by slash-separated path
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	now   time.Time
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte), now: time.Now()}
}

// Put stores a copy of data at path
func (m *Memory) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[strings.TrimPrefix(path, "/")] = bytes.Clone(data)
}

// List returns the documents under path in lexical order
func (m *Memory) List(ctx context.Context, path string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := strings.Trim(path, "/")
	if prefix != "" {
		prefix += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []FileInfo
	for name, data := range m.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		files = append(files, FileInfo{Path: name, Size: int64(len(data)), ModTime: m.now, RelativePath: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	return files, nil
}

// Read returns a reader over a copy of the document
func (m *Memory) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.files[strings.TrimPrefix(path, "/")]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("failed to open %s: %w", path, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists checks if a document exists
func (m *Memory) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[strings.TrimPrefix(path, "/")]
	return ok, nil
}

// Stat returns document metadata
func (m *Memory) Stat(ctx context.Context, path string) (*FileInfo, error) {
	name := strings.TrimPrefix(path, "/")
	m.mu.RLock()
	data, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("failed to stat %s: %w", path, ErrNotFound)
	}
	return &FileInfo{Path: name, Size: int64(len(data)), ModTime: m.now, RelativePath: name}, nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }
