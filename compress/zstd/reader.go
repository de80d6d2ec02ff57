package zstd

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Reader decompresses zstd data from an underlying reader.
type Reader struct {
	zr     *zstd.Decoder
	src    io.Reader
	closed bool
	mu     sync.Mutex
}

// NewReader creates a zstd reader over r.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderWithOptions(r)
}

// NewReaderWithOptions creates a zstd reader with custom decoder options.
func NewReaderWithOptions(r io.Reader, opts ...zstd.DOption) (*Reader, error) {
	zr, err := zstd.NewReader(r, opts...)
	if err != nil {
		return nil, err
	}
	return &Reader{
		zr:  zr,
		src: r,
	}, nil
}

// Read reads decompressed data.
func (r *Reader) Read(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.ErrClosedPipe
	}

	return r.zr.Read(p)
}

// Close releases the decoder's goroutines and buffers. If the underlying
// reader is an io.Closer it is closed as well. Close is idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.zr.Close()
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ io.ReadCloser = (*Reader)(nil)
