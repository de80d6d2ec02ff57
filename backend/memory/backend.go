// Package memory provides an in-memory backend for safeio.
//
// The memory backend is useful for:
//   - Unit testing without filesystem access
//   - Simulating flaky media with injected read failures
//   - Fast ephemeral storage
//
// Data is stored in RAM and lost when the backend is closed or the process exits.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/grokify/safeio"
)

func init() {
	safeio.Register("memory", NewFromConfig)
}

// object represents a stored object in memory.
type object struct {
	data    []byte
	modTime time.Time
	isDir   bool
}

// fault is a pending injected read failure.
type fault struct {
	remaining int
	err       error
}

// Backend implements safeio.Backend for in-memory storage.
type Backend struct {
	objects map[string]*object
	faults  map[string]*fault
	reads   map[string]int
	closed  bool
	mu      sync.RWMutex
}

// New creates a new memory backend.
func New() *Backend {
	return &Backend{
		objects: make(map[string]*object),
		faults:  make(map[string]*fault),
		reads:   make(map[string]int),
	}
}

// NewFromConfig creates a new memory backend from a config map.
// The memory backend ignores all configuration options.
func NewFromConfig(_ map[string]string) (safeio.Backend, error) {
	return New(), nil
}

// NewWriter creates a writer for the given path. Data becomes visible when
// the writer is closed.
func (b *Backend) NewWriter(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := b.check(ctx, p); err != nil {
		return nil, err
	}

	return &memoryWriter{
		backend: b,
		path:    normalizePath(p),
		buffer:  &bytes.Buffer{},
	}, nil
}

// NewReader creates a reader for the given path.
func (b *Backend) NewReader(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := b.check(ctx, p); err != nil {
		return nil, err
	}

	normalPath := normalizePath(p)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.reads[normalPath]++

	if f, ok := b.faults[normalPath]; ok {
		f.remaining--
		if f.remaining <= 0 {
			delete(b.faults, normalPath)
		}
		return nil, fmt.Errorf("reading %s: %w", p, f.err)
	}

	obj, exists := b.objects[normalPath]
	if !exists {
		return nil, fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
	}
	if obj.isDir {
		return nil, fmt.Errorf("%w: %s is a directory", safeio.ErrNotAFile, p)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns metadata about a path.
func (b *Backend) Stat(ctx context.Context, p string) (safeio.ObjectInfo, error) {
	if err := b.check(ctx, p); err != nil {
		return safeio.ObjectInfo{}, err
	}

	b.mu.RLock()
	obj, exists := b.objects[normalizePath(p)]
	b.mu.RUnlock()

	if !exists {
		return safeio.ObjectInfo{}, fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
	}

	return safeio.ObjectInfo{
		Path:    p,
		Size:    int64(len(obj.data)),
		ModTime: obj.modTime,
		IsDir:   obj.isDir,
	}, nil
}

// Exists checks if a path exists.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	if err := b.check(ctx, p); err != nil {
		return false, err
	}

	b.mu.RLock()
	_, exists := b.objects[normalizePath(p)]
	b.mu.RUnlock()

	return exists, nil
}

// Mkdir records a directory at path.
func (b *Backend) Mkdir(ctx context.Context, p string) error {
	if err := b.check(ctx, p); err != nil {
		return err
	}

	normalPath := normalizePath(p)

	b.mu.Lock()
	defer b.mu.Unlock()

	if obj, exists := b.objects[normalPath]; exists && !obj.isDir {
		return fmt.Errorf("%w: %s is a file", safeio.ErrInvalidPath, p)
	}
	b.objects[normalPath] = &object{
		modTime: time.Now(),
		isDir:   true,
	}

	return nil
}

// FailReads makes the next n NewReader calls for path fail with err.
func (b *Backend) FailReads(p string, n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 {
		delete(b.faults, normalizePath(p))
		return
	}
	b.faults[normalizePath(p)] = &fault{remaining: n, err: err}
}

// Reads returns how many times NewReader was called for path.
func (b *Backend) Reads(p string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reads[normalizePath(p)]
}

// Close releases all stored data.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.objects = nil

	return nil
}

func (b *Backend) check(ctx context.Context, p string) error {
	if err := b.checkClosed(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return validatePath(p)
}

// checkClosed returns an error if the backend is closed.
func (b *Backend) checkClosed() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return safeio.ErrBackendClosed
	}
	return nil
}

// validatePath checks if a path is valid.
func validatePath(p string) error {
	if err := safeio.ValidatePath(p); err != nil {
		return err
	}

	cleaned := path.Clean(strings.TrimPrefix(p, "/"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %s escapes the backend root", safeio.ErrInvalidPath, p)
	}

	return nil
}

// normalizePath normalizes a path for consistent storage.
func normalizePath(p string) string {
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// memoryWriter implements io.WriteCloser for memory backend.
type memoryWriter struct {
	backend *Backend
	path    string
	buffer  *bytes.Buffer
	closed  bool
	mu      sync.Mutex
}

func (w *memoryWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, safeio.ErrWriterClosed
	}

	return w.buffer.Write(p)
}

func (w *memoryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()

	if w.backend.closed {
		return safeio.ErrBackendClosed
	}

	w.backend.objects[w.path] = &object{
		data:    w.buffer.Bytes(),
		modTime: time.Now(),
	}

	return nil
}

var _ safeio.Backend = (*Backend)(nil)
