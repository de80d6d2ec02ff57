package safeio

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// CopyOption configures CopyFile.
type CopyOption func(*copyConfig)

type copyConfig struct {
	retry     []RetryOption
	naming    []NameOption
	overwrite bool
	hashType  HashType
}

// WithRetryOptions sets the options used to read the source.
func WithRetryOptions(opts ...RetryOption) CopyOption {
	return func(c *copyConfig) {
		c.retry = append(c.retry, opts...)
	}
}

// WithNameOptions sets the options used to pick a free destination name.
func WithNameOptions(opts ...NameOption) CopyOption {
	return func(c *copyConfig) {
		c.naming = append(c.naming, opts...)
	}
}

// WithOverwrite writes to dstPath even if it exists.
func WithOverwrite() CopyOption {
	return func(c *copyConfig) {
		c.overwrite = true
	}
}

// WithHash sets the digest CopyFile computes over the copied bytes.
// Default: HashSHA256.
func WithHash(t HashType) CopyOption {
	return func(c *copyConfig) {
		c.hashType = t
	}
}

// CopyResult describes a completed copy.
type CopyResult struct {
	// Path is where the data was written. It differs from the requested
	// destination when that name was taken.
	Path string

	// Size is the number of bytes written.
	Size int64

	// Hash is the hex digest of the copied bytes.
	Hash string
}

// CopyFile copies srcPath from src to dst, possibly across backends.
//
// The source is read whole with ReadWithRetry, so a flaky source is retried
// before anything is written. Unless WithOverwrite is given, the data is
// written to FindAvailableName(dstPath) and existing files are never
// replaced.
func CopyFile(ctx context.Context, src Backend, srcPath string, dst Backend, dstPath string, opts ...CopyOption) (CopyResult, error) {
	cfg := copyConfig{hashType: HashSHA256}
	for _, opt := range opts {
		opt(&cfg)
	}
	h := NewHash(cfg.hashType)
	if h == nil {
		return CopyResult{}, fmt.Errorf("%w: unknown hash type %q", ErrInvalidArgument, cfg.hashType)
	}

	data, err := ReadWithRetry(ctx, src, srcPath, cfg.retry...)
	if err != nil {
		return CopyResult{}, err
	}

	target := dstPath
	if !cfg.overwrite {
		target, err = FindAvailableName(ctx, dst, dstPath, cfg.naming...)
		if err != nil {
			return CopyResult{}, err
		}
	}

	n, err := WriteFile(ctx, dst, target, io.TeeReader(bytes.NewReader(data), h))
	if err != nil {
		return CopyResult{}, err
	}

	return CopyResult{
		Path: target,
		Size: n,
		Hash: fmt.Sprintf("%x", h.Sum(nil)),
	}, nil
}

// WriteFile writes everything from r to path on b and closes the writer.
// A failed Close is reported, since some backends upload on Close.
func WriteFile(ctx context.Context, b Backend, path string, r io.Reader) (int64, error) {
	w, err := b.NewWriter(ctx, path)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return n, fmt.Errorf("writing %s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("writing %s: %w", path, err)
	}

	return n, nil
}
