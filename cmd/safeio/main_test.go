package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grokify/safeio"
	"github.com/grokify/safeio/compress"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return strings.TrimSpace(stdout.String()), err
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	content := strings.Repeat("resilient file utilities\n", 50)
	if err := os.WriteFile(in, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	for _, codec := range []string{"gzip", "zstd", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			compressed, err := runCmd(t, "compress", "--codec", codec, in)
			if err != nil {
				t.Fatalf("compress failed: %v", err)
			}
			if !strings.HasPrefix(compressed, in) {
				t.Errorf("compress output %q does not extend %q", compressed, in)
			}

			out := filepath.Join(dir, codec+"-restored.txt")
			restored, err := runCmd(t, "decompress", compressed, out)
			if err != nil {
				t.Fatalf("decompress failed: %v", err)
			}

			got, err := os.ReadFile(restored)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if string(got) != content {
				t.Error("round trip through the CLI changed the content")
			}
		})
	}
}

func TestCompressDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(in, []byte("aaaa"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(in+".gz", []byte("keep"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out, err := runCmd(t, "compress", in)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if want := filepath.Join(dir, "a.txt_1.gz"); out != want {
		t.Errorf("compress wrote %q, want %q", out, want)
	}

	kept, err := os.ReadFile(in + ".gz")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(kept) != "keep" {
		t.Error("existing output was overwritten")
	}
}

func TestDecompressPlainFile(t *testing.T) {
	in := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(in, []byte("this is not compressed"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := runCmd(t, "decompress", in)
	if !errors.Is(err, compress.ErrNotCompressed) {
		t.Errorf("decompress error = %v, want ErrNotCompressed", err)
	}
}

func TestRead(t *testing.T) {
	in := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(in, []byte("abc"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out, err := runCmd(t, "read", "--hash", "md5", in)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := in + "\t3\tmd5:900150983cd24fb0d6963f7d28e17f72"
	if out != want {
		t.Errorf("read output = %q, want %q", out, want)
	}
}

func TestReadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.bin")

	_, err := runCmd(t, "read", "--attempts", "2", "--delay", "0s", missing)
	if !errors.Is(err, safeio.ErrNoData) {
		t.Errorf("read error = %v, want ErrNoData", err)
	}
}

func TestName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report_3.txt", "report_4.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	out, err := runCmd(t, "name", filepath.Join(dir, "report_3.txt"))
	if err != nil {
		t.Fatalf("name failed: %v", err)
	}
	if want := filepath.Join(dir, "report_5.txt"); out != want {
		t.Errorf("name = %q, want %q", out, want)
	}

	_, err = runCmd(t, "name", dir+string(filepath.Separator))
	if !errors.Is(err, safeio.ErrNotAFile) {
		t.Errorf("name on a directory error = %v, want ErrNotAFile", err)
	}
}

func TestChars(t *testing.T) {
	out, err := runCmd(t, "chars")
	if err != nil {
		t.Fatalf("chars failed: %v", err)
	}
	if !strings.Contains(out, `'\x00'`) {
		t.Errorf("chars output %q does not list NUL", out)
	}
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "safeio.yaml")
	if err := os.WriteFile(file, []byte("backend: memory\nlog:\n  level: debug\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out, err := runCmd(t, "--config", file, "name", "fresh.txt")
	if err != nil {
		t.Fatalf("name failed: %v", err)
	}
	if out != "fresh.txt" {
		t.Errorf("name = %q, want %q", out, "fresh.txt")
	}
}

func TestUsageErrors(t *testing.T) {
	tests := [][]string{
		nil,
		{"bogus"},
		{"--backend", "tape", "chars"},
		{"--log-level", "loud", "chars"},
		{"compress"},
		{"read"},
	}

	for _, args := range tests {
		if _, err := runCmd(t, args...); err == nil {
			t.Errorf("run(%q) succeeded, want an error", args)
		}
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(src, []byte("abc"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(dst, []byte("keep"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	out, err := runCmd(t, "copy", "--hash", "md5", src, dst)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	written := filepath.Join(dir, "b_1.txt")
	if want := written + "\t3\tmd5:900150983cd24fb0d6963f7d28e17f72"; out != want {
		t.Errorf("copy output = %q, want %q", out, want)
	}

	got, err := os.ReadFile(written)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("copied content = %q, want %q", got, "abc")
	}
	kept, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(kept) != "keep" {
		t.Error("copy replaced an existing file")
	}

	if _, err := runCmd(t, "copy", "--overwrite", src, dst); err != nil {
		t.Fatalf("copy --overwrite failed: %v", err)
	}
	replaced, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(replaced) != "abc" {
		t.Errorf("overwritten content = %q, want %q", replaced, "abc")
	}

	if _, err := runCmd(t, "copy", src); err == nil {
		t.Error("copy with one argument succeeded, want usage error")
	}
}
