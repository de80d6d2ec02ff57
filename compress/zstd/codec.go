package zstd

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/grokify/safeio/compress"
)

const codecName = "zstd"

var errBadMagic = errors.New("zstd: missing frame magic number")

func init() {
	compress.Register(Codec{})
}

// Codec is the Zstandard compress.Codec.
type Codec struct{}

// Name returns "zstd".
func (Codec) Name() string { return codecName }

// Extension returns ".zst".
func (Codec) Extension() string { return ".zst" }

// Magic returns the zstd frame magic number.
func (Codec) Magic() []byte { return []byte{0x28, 0xb5, 0x2f, 0xfd} }

// Compress implements compress.Codec.
func (Codec) Compress(src io.ReadSeeker, level compress.Level) (*bytes.Reader, error) {
	return Compress(src, level)
}

// Decompress implements compress.Codec.
func (Codec) Decompress(src io.ReadSeeker) (*bytes.Reader, error) {
	return Decompress(src)
}

// Compress rewinds src and encodes all of it into a new in-memory stream
// positioned at its start. src is left open.
func Compress(src io.ReadSeeker, level compress.Level) (*bytes.Reader, error) {
	if err := compress.Rewind(src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("zstd: creating encoder: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("zstd: reading source: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zstd: finishing frame: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

// Decompress rewinds src and decodes it into a new in-memory stream
// positioned at its start. src is left open.
//
// Data that is not a valid zstd stream returns an error matching
// compress.ErrNotCompressed. Exceeding the decoder's memory limit is not a
// format problem and is returned as is.
func Decompress(src io.ReadSeeker) (*bytes.Reader, error) {
	data, err := compress.ReadSource(src)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, compress.NotCompressed(codecName, nil)
	}
	if !bytes.HasPrefix(data, Codec{}.Magic()) {
		return nil, compress.NotCompressed(codecName, errBadMagic)
	}

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, classify(err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(err)
	}
	return bytes.NewReader(out), nil
}

func classify(err error) error {
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		return fmt.Errorf("zstd: %w", err)
	}
	return compress.NotCompressed(codecName, err)
}
