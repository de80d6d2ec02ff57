// Package zstd is a Zstandard stream codec. It offers better ratios than
// gzip at similar speed and much faster decompression, at the cost of
// being less universally readable.
package zstd

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/grokify/safeio/compress"
)

// encoderLevel maps a compress.Level to a zstd encoder level. Zstandard has
// no stored mode, so LevelNone uses the fastest level.
func encoderLevel(l compress.Level) zstd.EncoderLevel {
	switch l {
	case compress.LevelFastest, compress.LevelNone:
		return zstd.SpeedFastest
	case compress.LevelSmallest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// Writer compresses everything written to it into an underlying writer.
type Writer struct {
	zw     *zstd.Encoder
	dst    io.Writer
	closed bool
	mu     sync.Mutex
}

// NewWriter creates a zstd writer at LevelOptimal.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterLevel(w, compress.LevelOptimal)
}

// NewWriterLevel creates a zstd writer at the given level. Empty input
// still produces one frame, so an empty stream round-trips.
func NewWriterLevel(w io.Writer, level compress.Level) (*Writer, error) {
	return NewWriterWithOptions(w,
		zstd.WithEncoderLevel(encoderLevel(level)),
		zstd.WithZeroFrames(true),
	)
}

// NewWriterWithOptions creates a zstd writer with custom encoder options.
func NewWriterWithOptions(w io.Writer, opts ...zstd.EOption) (*Writer, error) {
	zw, err := zstd.NewWriter(w, opts...)
	if err != nil {
		return nil, err
	}
	return &Writer{
		zw:  zw,
		dst: w,
	}, nil
}

// Write writes compressed data to the underlying writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}

	return w.zw.Write(p)
}

// Flush encodes and writes any buffered data as a complete block.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return io.ErrClosedPipe
	}

	return w.zw.Flush()
}

// Close finishes the frame. If the underlying writer is an io.Closer it is
// closed as well. Close is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.zw.Close()
	if c, ok := w.dst.(io.Closer); ok {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

var _ io.WriteCloser = (*Writer)(nil)
