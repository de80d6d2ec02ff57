// Package gzip is the gzip stream codec: an envelope over the gzip format
// (RFC 1952 header and trailer around a deflate body), readable by any
// standard gzip implementation.
package gzip

import (
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/grokify/safeio/compress"
)

// gzipLevel maps a compress.Level to a gzip level.
func gzipLevel(l compress.Level) int {
	switch l {
	case compress.LevelFastest:
		return gzip.BestSpeed
	case compress.LevelNone:
		return gzip.NoCompression
	case compress.LevelSmallest:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

// Writer compresses everything written to it into an underlying writer.
type Writer struct {
	gw     *gzip.Writer
	dst    io.Writer
	closed bool
	mu     sync.Mutex
}

// NewWriter creates a gzip writer at LevelOptimal.
func NewWriter(w io.Writer) *Writer {
	return NewWriterLevel(w, compress.LevelOptimal)
}

// NewWriterLevel creates a gzip writer at the given level.
func NewWriterLevel(w io.Writer, level compress.Level) *Writer {
	// Every level gzipLevel returns is valid, so the error is always nil.
	gw, _ := gzip.NewWriterLevel(w, gzipLevel(level))
	return &Writer{
		gw:  gw,
		dst: w,
	}
}

// Write writes compressed data to the underlying writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}

	return w.gw.Write(p)
}

// Flush flushes any pending compressed data.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return io.ErrClosedPipe
	}

	return w.gw.Flush()
}

// Close writes the gzip trailer. If the underlying writer is an io.Closer
// it is closed as well. Close is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.gw.Close()
	if c, ok := w.dst.(io.Closer); ok {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

var _ io.WriteCloser = (*Writer)(nil)
