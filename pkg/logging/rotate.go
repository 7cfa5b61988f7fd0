package logging

import (
	"fmt"
	"os"
	"sync"
)

// rotatingWriter appends to a file and rotates it once MaxSize is reached,
// keeping up to maxBackups numbered copies (path.1 is the newest)
type rotatingWriter struct {
	mu          sync.Mutex
	path        string
	maxSize     int64
	maxBackups  int
	file        *os.File
	currentSize int64
}

func newRotatingWriter(path string, maxSize int64, maxBackups int) (*rotatingWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &rotatingWriter{
		path:        path,
		maxSize:     maxSize,
		maxBackups:  maxBackups,
		file:        file,
		currentSize: info.Size(),
	}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.maxSize > 0 && w.currentSize >= w.maxSize {
		w.rotate()
	}

	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *rotatingWriter) rotate() {
	w.file.Close()

	for i := w.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", w.path, i), fmt.Sprintf("%s.%d", w.path, i+1))
	}
	os.Rename(w.path, w.path+".1")

	if w.maxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", w.path, w.maxBackups+1))
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		w.file = nil
		return
	}
	w.file = file
	w.currentSize = 0
}
