// Package safeio provides resilient file utilities that work against any
// storage backend: bounded retrying reads, collision-free output names and
// validation of path characters.
//
// Compression lives in the compress packages; backends live under backend/.
//
// Basic usage:
//
//	fsys := file.New(file.Config{})
//	data, err := safeio.ReadWithRetry(ctx, fsys, "/mnt/usb/texture.dds")
//	if errors.Is(err, safeio.ErrNoData) {
//	    // every attempt failed
//	}
//	out, err := safeio.FindAvailableName(ctx, fsys, "/tmp/report.txt")
package safeio

import (
	"context"
	"io"
	"time"
)

// Backend represents storage that safeio utilities read from, probe and
// write to (local disk, memory, S3, SFTP).
//
// Backends are safe for concurrent use by multiple goroutines.
type Backend interface {
	// NewReader opens the file at path for reading.
	// Returns ErrNotFound if the path does not exist and ErrNotAFile if it
	// names a directory. The returned reader must be closed after use.
	NewReader(ctx context.Context, path string) (io.ReadCloser, error)

	// NewWriter creates or truncates the file at path.
	// The returned writer must be closed to flush data.
	NewWriter(ctx context.Context, path string) (io.WriteCloser, error)

	// Stat returns metadata about a path.
	// Returns ErrNotFound if the path does not exist.
	Stat(ctx context.Context, path string) (ObjectInfo, error)

	// Exists reports whether a path exists. Only presence is checked.
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases any resources held by the backend.
	// After Close, all other methods return ErrBackendClosed.
	Close() error
}

// ObjectInfo provides metadata about a stored object.
type ObjectInfo struct {
	// Path is the path the caller asked about.
	Path string

	// Size is the object's size in bytes, or -1 if unknown.
	Size int64

	// ModTime is the last modification time, or zero if unknown.
	ModTime time.Time

	// IsDir is true if the object is a directory.
	IsDir bool
}
