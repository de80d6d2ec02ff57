package lz4

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/grokify/safeio/compress"
)

type failingSource struct{ err error }

func (f failingSource) Read([]byte) (int, error) { return 0, f.err }
func (f failingSource) Seek(int64, int) (int64, error) { return 0, nil }

func sample() []byte {
	return []byte(strings.Repeat("lz4 favours decode speed over ratio. ", 300))
}

func TestRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"short":  []byte("l"),
		"text":   sample(),
		"binary": {0x04, 0x22, 0x4d, 0x18, 0x00, 0xff},
	}
	levels := []compress.Level{compress.LevelOptimal, compress.LevelFastest, compress.LevelNone, compress.LevelSmallest}

	for name, data := range inputs {
		for _, level := range levels {
			t.Run(name+"/"+level.String(), func(t *testing.T) {
				compressed, err := Compress(bytes.NewReader(data), level)
				if err != nil {
					t.Fatalf("Compress failed: %v", err)
				}
				if !bytes.HasPrefix(mustRead(t, compressed), Codec{}.Magic()) {
					t.Error("compressed stream does not start with the frame magic")
				}
				if _, err := compressed.Seek(0, io.SeekStart); err != nil {
					t.Fatalf("Seek failed: %v", err)
				}

				plain, err := Decompress(compressed)
				if err != nil {
					t.Fatalf("Decompress failed: %v", err)
				}
				if got := mustRead(t, plain); !bytes.Equal(got, data) {
					t.Errorf("round trip = %d bytes, want %d", len(got), len(data))
				}
			})
		}
	}
}

func TestDecompressNotCompressed(t *testing.T) {
	valid, err := Compress(bytes.NewReader(sample()), compress.LevelOptimal)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	good := mustRead(t, valid)

	big := largeFrame(t)
	if big[4]&flagContentSize == 0 {
		t.Fatal("frame does not record its content size")
	}
	// Magic, FLG, BD, 8-byte content size and header checksum.
	const headerLen = 15
	firstBlock := binary.LittleEndian.Uint32(big[headerLen:]) &^ blockUncompressed
	boundary := headerLen + 4 + int(firstBlock)

	tests := map[string][]byte{
		"empty":               {},
		"plain":               []byte("this is not lz4 data at all"),
		"short":               {0x04, 0x22},
		"truncated":           good[:len(good)/2],
		"cut at block":        big[:boundary],
		"no end mark":         big[:len(big)-8],
		"no content checksum": big[:len(big)-4],
		"small no end mark":   good[:len(good)-8],
		"trailing garbage":    append(append([]byte{}, good...), 0x01),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := Decompress(bytes.NewReader(data))
			if !errors.Is(err, compress.ErrNotCompressed) {
				t.Errorf("Decompress error = %v, want ErrNotCompressed", err)
			}
			if out != nil {
				t.Error("Decompress returned output on failure")
			}
		})
	}
}

// largeFrame compresses incompressible input spanning more than one 4 MiB block.
func largeFrame(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, 5<<20)
	_, _ = rand.Read(data)

	compressed, err := Compress(bytes.NewReader(data), compress.LevelFastest)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	frame := mustRead(t, compressed)

	plain, err := Decompress(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("Decompress of the full frame failed: %v", err)
	}
	if !bytes.Equal(mustRead(t, plain), data) {
		t.Fatal("large round trip changed the data")
	}
	return frame
}

func TestCheckFrameContentSize(t *testing.T) {
	data := sample()
	compressed, err := Compress(bytes.NewReader(data), compress.LevelOptimal)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	size, sized, err := checkFrame(mustRead(t, compressed))
	if err != nil {
		t.Fatalf("checkFrame failed: %v", err)
	}
	if !sized || size != uint64(len(data)) {
		t.Errorf("content size = %d (set %t), want %d", size, sized, len(data))
	}
}

func TestSourceErrorsPropagate(t *testing.T) {
	boom := errors.New("usb stick unplugged")

	_, err := Decompress(failingSource{err: boom})
	if !errors.Is(err, boom) || errors.Is(err, compress.ErrNotCompressed) {
		t.Errorf("Decompress error = %v, want the source error only", err)
	}
}

func TestCompressionLevel(t *testing.T) {
	if compressionLevel(compress.LevelNone) != compressionLevel(compress.LevelFastest) {
		t.Error("LevelNone should fall back to the fastest level")
	}
}

func mustRead(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return data
}
