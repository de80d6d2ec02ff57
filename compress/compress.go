// Package compress defines the stream codec contract shared by the gzip,
// zstd and lz4 packages.
//
// A codec turns a seekable byte stream into a new, fully materialized,
// compressed stream and back again. Decompressing data that is not in the
// codec's format is an expected outcome and reported as ErrNotCompressed,
// so callers can probe unknown data:
//
//	out, err := gzip.Decompress(src)
//	if errors.Is(err, compress.ErrNotCompressed) {
//	    out = src // use as-is
//	}
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotCompressed is returned when input is not valid data for the codec:
// bad header, bad checksum, corrupt or truncated body, or empty input.
var ErrNotCompressed = errors.New("compress: input is not valid compressed data")

// ErrUnknownCodec is returned by Lookup when no codec has the given name.
var ErrUnknownCodec = errors.New("compress: unknown codec")

// Level is the compression effort. The zero value is LevelOptimal.
type Level int

const (
	// LevelOptimal balances speed and ratio.
	LevelOptimal Level = iota

	// LevelFastest favors speed over ratio.
	LevelFastest

	// LevelNone stores data without compression where the format allows
	// it, and falls back to the fastest level otherwise.
	LevelNone

	// LevelSmallest favors ratio over speed.
	LevelSmallest
)

// String returns the level's name.
func (l Level) String() string {
	switch l {
	case LevelOptimal:
		return "optimal"
	case LevelFastest:
		return "fastest"
	case LevelNone:
		return "none"
	case LevelSmallest:
		return "smallest"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel converts a name such as "fastest" to a Level.
// An empty string is LevelOptimal.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "optimal", "default":
		return LevelOptimal, nil
	case "fastest", "fast":
		return LevelFastest, nil
	case "none", "nocompression":
		return LevelNone, nil
	case "smallest", "best":
		return LevelSmallest, nil
	default:
		return LevelOptimal, fmt.Errorf("compress: unknown level %q", s)
	}
}

// Codec compresses and decompresses in-memory byte streams.
//
// Both operations rewind src to its start before reading and leave src
// open; ownership stays with the caller. Codecs are safe for concurrent use.
type Codec interface {
	// Name is the registry key, e.g. "gzip".
	Name() string

	// Extension is the conventional file extension including the dot, e.g. ".gz".
	Extension() string

	// Magic is the byte prefix every stream in this format starts with.
	Magic() []byte

	// Compress encodes all of src. The result is positioned at its start.
	// Errors come only from reading src.
	Compress(src io.ReadSeeker, level Level) (*bytes.Reader, error)

	// Decompress decodes all of src. Input that is not valid data for the
	// codec returns an error matching ErrNotCompressed; failures reading
	// src are returned wrapped and do not match it.
	Decompress(src io.ReadSeeker) (*bytes.Reader, error)
}

// ReadSource rewinds src and reads it to the end. Codecs use it so that
// failures of the source stream are kept apart from decode failures.
func ReadSource(src io.ReadSeeker) ([]byte, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("compress: rewinding source: %w", err)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("compress: reading source: %w", err)
	}
	return data, nil
}

// Rewind seeks src back to its start.
func Rewind(src io.Seeker) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("compress: rewinding source: %w", err)
	}
	return nil
}

// NotCompressed wraps a decoder error so that it matches ErrNotCompressed
// while keeping the decoder's message.
func NotCompressed(codec string, err error) error {
	if err == nil {
		return fmt.Errorf("%w (%s: empty input)", ErrNotCompressed, codec)
	}
	return &decodeError{codec: codec, err: err}
}

type decodeError struct {
	codec string
	err   error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.codec, ErrNotCompressed, e.err)
}

func (e *decodeError) Unwrap() []error {
	return []error{ErrNotCompressed, e.err}
}

// IsNotCompressed returns true if err reports malformed compressed input.
func IsNotCompressed(err error) bool {
	return errors.Is(err, ErrNotCompressed)
}
