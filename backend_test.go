package safeio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// fakeBackend is a minimal in-package Backend. Reads fail with the queued
// errors first, then return the stored contents.
type fakeBackend struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	failures []error
	reads    int
	probes   []string
	readOnly bool
}

func newFakeBackend(files ...string) *fakeBackend {
	b := &fakeBackend{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
	for _, f := range files {
		if strings.HasSuffix(f, "/") {
			b.dirs[strings.TrimSuffix(f, "/")] = true
			continue
		}
		b.files[f] = []byte("contents of " + f)
	}
	return b
}

func (b *fakeBackend) NewReader(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reads++
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return nil, err
	}
	data, ok := b.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBackend) NewWriter(_ context.Context, path string) (io.WriteCloser, error) {
	if b.readOnly {
		return nil, fmt.Errorf("%w: read-only fake", ErrPermissionDenied)
	}
	return &fakeWriter{b: b, path: path}, nil
}

type fakeWriter struct {
	b    *fakeBackend
	path string
	buf  bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	w.b.files[w.path] = w.buf.Bytes()
	return nil
}

func (b *fakeBackend) Stat(_ context.Context, path string) (ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dirs[path] {
		return ObjectInfo{Path: path, IsDir: true}, nil
	}
	data, ok := b.files[path]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return ObjectInfo{Path: path, Size: int64(len(data))}, nil
}

func (b *fakeBackend) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probes = append(b.probes, path)
	_, ok := b.files[path]
	return ok || b.dirs[path], nil
}

func (b *fakeBackend) Close() error { return nil }

var _ Backend = (*fakeBackend)(nil)
