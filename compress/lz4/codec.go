// Package lz4 is an LZ4 frame-format stream codec, for when decompression
// speed matters more than ratio.
package lz4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/grokify/safeio/compress"
)

const codecName = "lz4"

var errBadMagic = errors.New("lz4: missing frame magic number")

func init() {
	compress.Register(Codec{})
}

// Codec is the LZ4 compress.Codec.
type Codec struct{}

// Name returns "lz4".
func (Codec) Name() string { return codecName }

// Extension returns ".lz4".
func (Codec) Extension() string { return ".lz4" }

// Magic returns the LZ4 frame magic number.
func (Codec) Magic() []byte { return []byte{0x04, 0x22, 0x4d, 0x18} }

// Compress implements compress.Codec.
func (Codec) Compress(src io.ReadSeeker, level compress.Level) (*bytes.Reader, error) {
	return Compress(src, level)
}

// Decompress implements compress.Codec.
func (Codec) Decompress(src io.ReadSeeker) (*bytes.Reader, error) {
	return Decompress(src)
}

// compressionLevel maps a compress.Level to an LZ4 level. LZ4 has no
// stored mode, so LevelNone uses the fast level.
func compressionLevel(l compress.Level) lz4.CompressionLevel {
	switch l {
	case compress.LevelSmallest:
		return lz4.Level9
	case compress.LevelOptimal:
		return lz4.Level5
	default:
		return lz4.Fast
	}
}

// Compress rewinds src and encodes all of it as one LZ4 frame in a new
// in-memory stream positioned at its start. The frame records the content
// size and a content checksum. src is left open.
func Compress(src io.ReadSeeker, level compress.Level) (*bytes.Reader, error) {
	data, err := compress.ReadSource(src)
	if err != nil {
		return nil, err
	}

	opts := []lz4.Option{
		lz4.CompressionLevelOption(compressionLevel(level)),
		lz4.ChecksumOption(true),
	}
	if len(data) > 0 {
		opts = append(opts, lz4.SizeOption(uint64(len(data))))
	}

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(opts...); err != nil {
		return nil, fmt.Errorf("lz4: configuring writer: %w", err)
	}

	// An empty write emits the frame header, so empty input still
	// produces a decodable frame.
	if _, err := w.Write(nil); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("lz4: writing frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("lz4: encoding: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4: finishing frame: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

// Decompress rewinds src and decodes it into a new in-memory stream
// positioned at its start. src is left open. Data that is not exactly one
// complete LZ4 frame returns an error matching compress.ErrNotCompressed.
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

	// The decoder accepts a stream that stops at a block boundary, so the
	// frame layout is checked before decoding.
	size, sized, err := checkFrame(data)
	if err != nil {
		return nil, compress.NotCompressed(codecName, err)
	}

	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, compress.NotCompressed(codecName, err)
	}
	if sized && uint64(len(out)) != size {
		return nil, compress.NotCompressed(codecName,
			fmt.Errorf("%w: decoded %d bytes, frame declares %d", io.ErrUnexpectedEOF, len(out), size))
	}
	return bytes.NewReader(out), nil
}

// Frame descriptor flags.
const (
	flagDictID          = 0x01
	flagContentChecksum = 0x04
	flagContentSize     = 0x08
	flagBlockChecksum   = 0x10
	flagVersionMask     = 0xc0
	flagVersion         = 0x40

	blockUncompressed = 0x80000000
	maxBlockSize      = 4 << 20
)

// checkFrame walks the frame in data: header, block sizes, end mark and
// content checksum. It fails unless data holds exactly one complete frame,
// and returns the declared content size when the frame carries one.
func checkFrame(data []byte) (size uint64, sized bool, err error) {
	const minHeader = 4 + 2 + 1
	if len(data) < minHeader {
		return 0, false, io.ErrUnexpectedEOF
	}
	flg := data[4]
	if flg&flagVersionMask != flagVersion {
		return 0, false, fmt.Errorf("lz4: unsupported frame version %#x", flg&flagVersionMask)
	}

	pos := 6
	if flg&flagContentSize != 0 {
		if len(data) < pos+8 {
			return 0, false, io.ErrUnexpectedEOF
		}
		size, sized = binary.LittleEndian.Uint64(data[pos:]), true
		pos += 8
	}
	if flg&flagDictID != 0 {
		pos += 4
	}
	pos++ // header checksum
	if pos > len(data) {
		return 0, false, io.ErrUnexpectedEOF
	}

	for {
		if len(data) < pos+4 {
			return 0, false, fmt.Errorf("%w: missing end mark", io.ErrUnexpectedEOF)
		}
		block := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		if block == 0 {
			break
		}
		n := int(block &^ blockUncompressed)
		if n > maxBlockSize {
			return 0, false, fmt.Errorf("lz4: block of %d bytes exceeds the maximum", n)
		}
		pos += n
		if flg&flagBlockChecksum != 0 {
			pos += 4
		}
		if pos > len(data) {
			return 0, false, fmt.Errorf("%w: block cut short", io.ErrUnexpectedEOF)
		}
	}

	if flg&flagContentChecksum != 0 {
		pos += 4
	}
	switch {
	case pos > len(data):
		return 0, false, fmt.Errorf("%w: missing content checksum", io.ErrUnexpectedEOF)
	case pos < len(data):
		return 0, false, fmt.Errorf("lz4: %d trailing bytes after frame", len(data)-pos)
	}
	return size, sized, nil
}
