package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRecorder captures an utterance into a uniquely named file under the
// scratch directory. The bytes come from whatever transport delivers the
// user's speech; callers write them between Start and Stop.
type FileRecorder struct {
	dir string

	mu      sync.Mutex
	f       *os.File
	written int64
}

// NewFileRecorder creates a recorder writing into dir.
func NewFileRecorder(dir string) *FileRecorder {
	return &FileRecorder{dir: dir}
}

// Start opens a fresh capture file. Fails without state change when a capture
// is already open or the scratch directory is unusable.
func (r *FileRecorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f != nil {
		return ErrRecorderBusy
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	path := filepath.Join(r.dir, fmt.Sprintf("recording_%d.m4a", time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating capture file: %w", err)
	}
	r.f = f
	r.written = 0
	return nil
}

// Write appends captured audio bytes. Implements io.Writer so request bodies
// can be streamed straight in.
func (r *FileRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, errors.New("audio: no capture active")
	}
	n, err := r.f.Write(p)
	r.written += int64(n)
	return n, err
}

// Stop closes the capture and returns its path. An empty capture is removed
// and reported as no result.
func (r *FileRecorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return "", nil
	}
	path := r.f.Name()
	err := r.f.Close()
	r.f = nil
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("finalizing capture: %w", err)
	}
	if r.written == 0 {
		_ = os.Remove(path)
		return "", nil
	}
	return path, nil
}
