package safeio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// NameOption configures FindAvailableName.
type NameOption func(*nameConfig)

type nameConfig struct {
	multiDigit bool
}

// WithMultiDigitSuffix makes FindAvailableName resume from suffixes with more
// than one digit, so a collision on "file_10.txt" yields "file_11.txt"
// instead of "file_10_1.txt".
func WithMultiDigitSuffix() NameOption {
	return func(c *nameConfig) {
		c.multiDigit = true
	}
}

// IsFilePath reports whether p is shaped like a file path: non-empty, not
// ending in a separator, and with a base name that carries an extension.
func IsFilePath(p string) bool {
	if p == "" || os.IsPathSeparator(p[len(p)-1]) || p[len(p)-1] == '/' {
		return false
	}
	base := filepath.Base(p)
	if base == "." || base == ".." {
		return false
	}
	return len(filepath.Ext(base)) > 1
}

func checkFilePath(p string) error {
	if !IsFilePath(p) {
		return fmt.Errorf("%w: %q must name a file with an extension, not a directory", ErrNotAFile, p)
	}
	return ValidatePath(p)
}

// FindAvailableName returns a path based on basePath that does not exist in b.
//
// If basePath is free it is returned unchanged. Otherwise "_N" is appended
// to the stem, starting at 1, until a free name is found. When the stem
// already ends in "_<digit>" numbering resumes from that digit, so a
// collision on "report_3.txt" yields "report_4.txt". Only single-digit
// suffixes are recognised unless WithMultiDigitSuffix is given: by default a
// collision on "report_10.txt" yields "report_10_1.txt".
//
// A directory-shaped basePath, or one naming an existing directory, returns
// an error matching ErrNotAFile.
func FindAvailableName(ctx context.Context, b Backend, basePath string, opts ...NameOption) (string, error) {
	if err := checkFilePath(basePath); err != nil {
		return "", err
	}

	cfg := nameConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	exists, err := b.Exists(ctx, basePath)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", basePath, err)
	}
	if !exists {
		return basePath, nil
	}
	info, err := b.Stat(ctx, basePath)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", basePath, err)
	}
	if info.IsDir {
		return "", fmt.Errorf("%w: %q is an existing directory", ErrNotAFile, basePath)
	}

	stem, ext := splitExt(basePath)
	stem, counter := trimCounter(stem, cfg.multiDigit)

	for ; ; counter++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := stem + "_" + strconv.Itoa(counter) + ext
		exists, err := b.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// trimCounter strips a trailing "_<digits>" from stem and returns the
// counter to resume from. Without a recognised suffix the counter is 1.
func trimCounter(stem string, multiDigit bool) (string, int) {
	end := len(stem)
	start := end
	for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
		start--
		if !multiDigit {
			break
		}
	}
	if start == end || start == 0 || stem[start-1] != '_' {
		return stem, 1
	}
	n, err := strconv.Atoi(stem[start:end])
	if err != nil {
		return stem, 1
	}
	return stem[:start-1], n
}

// splitExt splits p at the last dot of its base name.
func splitExt(p string) (string, string) {
	ext := filepath.Ext(p)
	return p[:len(p)-len(ext)], ext
}

// PathWithoutExt returns p with the extension of its base name removed,
// keeping the directory. A directory-shaped p returns ErrNotAFile.
func PathWithoutExt(p string) (string, error) {
	if !IsFilePath(p) {
		return "", fmt.Errorf("%w: %q", ErrNotAFile, p)
	}
	stem, _ := splitExt(p)
	return stem, nil
}

// ChangeFilename replaces the stem of p's base name with newStem, keeping
// the directory and extension. Only the base name is touched, even if the
// old stem also appears in a parent directory.
func ChangeFilename(p, newStem string) (string, error) {
	if !IsFilePath(p) {
		return "", fmt.Errorf("%w: %q", ErrNotAFile, p)
	}
	if err := ValidateName(newStem); err != nil {
		return "", err
	}
	dir := p[:len(p)-len(filepath.Base(p))]
	return dir + newStem + filepath.Ext(p), nil
}
