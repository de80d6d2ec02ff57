package gzip

import (
	"bytes"
	"fmt"
	"io"

	"github.com/grokify/safeio/compress"
)

const codecName = "gzip"

func init() {
	compress.Register(Codec{})
}

// Codec is the gzip compress.Codec.
type Codec struct{}

// Name returns "gzip".
func (Codec) Name() string { return codecName }

// Extension returns ".gz".
func (Codec) Extension() string { return ".gz" }

// Magic returns the gzip ID bytes.
func (Codec) Magic() []byte { return []byte{0x1f, 0x8b} }

// Compress implements compress.Codec.
func (Codec) Compress(src io.ReadSeeker, level compress.Level) (*bytes.Reader, error) {
	return Compress(src, level)
}

// Decompress implements compress.Codec.
func (Codec) Decompress(src io.ReadSeeker) (*bytes.Reader, error) {
	return Decompress(src)
}

// Compress rewinds src and gzips all of it into a new in-memory stream
// positioned at its start. src is left open.
func Compress(src io.ReadSeeker, level compress.Level) (*bytes.Reader, error) {
	if err := compress.Rewind(src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := NewWriterLevel(&buf, level)
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip: reading source: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: finishing stream: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

// Decompress rewinds src and decodes it into a new in-memory stream
// positioned at its start. src is left open.
//
// Data that is not a complete, valid gzip stream returns an error matching
// compress.ErrNotCompressed and no output. Failures reading src are
// returned wrapped and do not match it.
func Decompress(src io.ReadSeeker) (*bytes.Reader, error) {
	data, err := compress.ReadSource(src)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, compress.NotCompressed(codecName, nil)
	}

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, compress.NotCompressed(codecName, err)
	}
	return bytes.NewReader(out), nil
}
