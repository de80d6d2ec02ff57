package compress_test

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/grokify/safeio/compress"
	"github.com/grokify/safeio/compress/gzip"
	_ "github.com/grokify/safeio/compress/lz4"
	"github.com/grokify/safeio/compress/zstd"
)

func TestCodecs(t *testing.T) {
	want := []string{"gzip", "lz4", "zstd"}
	if got := compress.Codecs(); !slices.Equal(got, want) {
		t.Errorf("Codecs() = %v, want %v", got, want)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := compress.Lookup("rar"); !errors.Is(err, compress.ErrUnknownCodec) {
		t.Errorf("Lookup error = %v, want ErrUnknownCodec", err)
	}
}

func TestForExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"a.txt.gz", "gzip", true},
		{"A.TXT.ZST", "zstd", true},
		{"dir/b.lz4", "lz4", true},
		{"c.txt", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		c, ok := compress.ForExtension(tt.name)
		if ok != tt.ok {
			t.Errorf("ForExtension(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && c.Name() != tt.want {
			t.Errorf("ForExtension(%q) = %s, want %s", tt.name, c.Name(), tt.want)
		}
	}
}

func TestDetectAndDecompressAuto(t *testing.T) {
	data := []byte(strings.Repeat("auto detect me ", 100))

	for _, name := range compress.Codecs() {
		t.Run(name, func(t *testing.T) {
			codec, err := compress.Lookup(name)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			compressed, err := codec.Compress(bytes.NewReader(data), compress.LevelOptimal)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			detected, ok, err := compress.Detect(compressed)
			if err != nil || !ok {
				t.Fatalf("Detect = %v, %v", ok, err)
			}
			if detected.Name() != name {
				t.Errorf("Detect = %s, want %s", detected.Name(), name)
			}

			plain, used, err := compress.DecompressAuto(compressed)
			if err != nil {
				t.Fatalf("DecompressAuto failed: %v", err)
			}
			if used.Name() != name {
				t.Errorf("DecompressAuto used %s, want %s", used.Name(), name)
			}
			got, _ := io.ReadAll(plain)
			if !bytes.Equal(got, data) {
				t.Error("DecompressAuto changed the content")
			}
		})
	}
}

func TestDecompressAutoPlain(t *testing.T) {
	src := bytes.NewReader([]byte("plain text, use as-is"))

	out, codec, err := compress.DecompressAuto(src)
	if !compress.IsNotCompressed(err) {
		t.Fatalf("DecompressAuto error = %v, want ErrNotCompressed", err)
	}
	if out != nil || codec != nil {
		t.Error("DecompressAuto returned output for plain input")
	}

	// The caller can fall back to the untouched source.
	got, _ := io.ReadAll(src)
	if string(got) != "plain text, use as-is" {
		t.Errorf("source after DecompressAuto = %q", got)
	}
}

func TestDecompressWrongCodec(t *testing.T) {
	compressed, err := gzip.Compress(bytes.NewReader([]byte("gzip payload")), compress.LevelFastest)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	_, err = zstd.Decompress(compressed)
	if !errors.Is(err, compress.ErrNotCompressed) {
		t.Errorf("zstd.Decompress(gzip data) error = %v, want ErrNotCompressed", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want compress.Level
	}{
		{"", compress.LevelOptimal},
		{"optimal", compress.LevelOptimal},
		{"Fastest", compress.LevelFastest},
		{"none", compress.LevelNone},
		{"smallest", compress.LevelSmallest},
	}

	for _, tt := range tests {
		got, err := compress.ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := compress.ParseLevel("ultra"); err == nil {
		t.Error("ParseLevel(ultra) succeeded")
	}
}

func TestNotCompressedKeepsCause(t *testing.T) {
	cause := errors.New("bad header")
	err := compress.NotCompressed("gzip", cause)

	if !errors.Is(err, compress.ErrNotCompressed) || !errors.Is(err, cause) {
		t.Errorf("NotCompressed error = %v does not match both sentinel and cause", err)
	}
}

func TestLevelString(t *testing.T) {
	for _, l := range []compress.Level{compress.LevelOptimal, compress.LevelFastest, compress.LevelNone, compress.LevelSmallest} {
		parsed, err := compress.ParseLevel(l.String())
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", l.String(), err)
		}
		if parsed != l {
			t.Errorf("ParseLevel(%q) = %v, want %v", l.String(), parsed, l)
		}
	}
	if got := compress.Level(9).String(); got != "Level(9)" {
		t.Errorf("String() = %q, want %q", got, "Level(9)")
	}
}
