package gzip

import (
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/grokify/safeio/compress"
)

// Reader decompresses gzip data from an underlying reader.
type Reader struct {
	gr     *gzip.Reader
	src    io.Reader
	closed bool
	mu     sync.Mutex
}

// NewReader reads the gzip header from r. A missing or malformed header
// returns an error matching compress.ErrNotCompressed.
func NewReader(r io.Reader) (*Reader, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		if err == io.EOF {
			return nil, compress.NotCompressed(codecName, nil)
		}
		return nil, compress.NotCompressed(codecName, err)
	}
	return &Reader{
		gr:  gr,
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

	return r.gr.Read(p)
}

// Close releases the decoder. If the underlying reader is an io.Closer it
// is closed as well. Close is idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	err := r.gr.Close()
	if c, ok := r.src.(io.Closer); ok {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// Header returns the gzip header of the current member.
func (r *Reader) Header() gzip.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gr.Header
}

var _ io.ReadCloser = (*Reader)(nil)
