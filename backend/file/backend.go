// Package file provides a local filesystem backend for safeio.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/grokify/safeio"
)

func init() {
	safeio.Register("file", NewFromConfig)
}

// Config holds configuration for the file backend.
type Config struct {
	// Root confines all operations to a directory; paths are relative to
	// it and may not escape it. An empty Root uses host paths verbatim,
	// absolute or relative to the working directory.
	Root string

	// CreateDirs controls whether NewWriter creates parent directories.
	CreateDirs bool

	// DirPermissions is the permission mode for created directories.
	// Default: 0755
	DirPermissions os.FileMode

	// FilePermissions is the permission mode for created files.
	// Default: 0644
	FilePermissions os.FileMode
}

// DefaultConfig returns the default configuration: unrooted, creating
// parent directories on write.
func DefaultConfig() Config {
	return Config{
		CreateDirs:      true,
		DirPermissions:  0755,
		FilePermissions: 0644,
	}
}

// Backend implements safeio.Backend for the local filesystem.
type Backend struct {
	config Config
	closed bool
	mu     sync.RWMutex
}

// New creates a new file backend with the given configuration.
func New(config Config) *Backend {
	if config.DirPermissions == 0 {
		config.DirPermissions = 0755
	}
	if config.FilePermissions == 0 {
		config.FilePermissions = 0644
	}
	return &Backend{
		config: config,
	}
}

// NewFromConfig creates a new file backend from a config map.
// Supported keys:
//   - root: root directory (default: unrooted)
//   - create_dirs: "true" or "false" (default: "true")
func NewFromConfig(configMap map[string]string) (safeio.Backend, error) {
	config := DefaultConfig()

	if root, ok := configMap["root"]; ok {
		config.Root = root
	}

	if createDirs, ok := configMap["create_dirs"]; ok {
		config.CreateDirs = createDirs != "false"
	}

	return New(config), nil
}

// NewWriter creates or truncates the file at path.
func (b *Backend) NewWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	fullPath, err := b.resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	if b.config.CreateDirs {
		dir := filepath.Dir(fullPath)
		if err := os.MkdirAll(dir, b.config.DirPermissions); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, translateError(err))
		}
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, b.config.FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("creating file %s: %w", path, translateError(err))
	}

	return f, nil
}

// NewReader opens the file at path for reading.
func (b *Backend) NewReader(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := b.resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, translateError(err))
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening file %s: %w", path, translateError(err))
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", safeio.ErrNotAFile, path)
	}

	return f, nil
}

// Stat returns metadata about a path.
func (b *Backend) Stat(ctx context.Context, path string) (safeio.ObjectInfo, error) {
	fullPath, err := b.resolve(ctx, path)
	if err != nil {
		return safeio.ObjectInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return safeio.ObjectInfo{}, fmt.Errorf("stat %s: %w", path, translateError(err))
	}

	return safeio.ObjectInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// Exists checks if a path exists.
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := b.resolve(ctx, path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking existence of %s: %w", path, translateError(err))
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// resolve checks the backend state and path and returns the host path.
func (b *Backend) resolve(ctx context.Context, path string) (string, error) {
	if err := b.checkClosed(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := b.validatePath(path); err != nil {
		return "", err
	}
	return b.fullPath(path), nil
}

// fullPath returns the host path for path.
func (b *Backend) fullPath(path string) string {
	path = filepath.FromSlash(path)
	if b.config.Root == "" {
		return path
	}
	return filepath.Join(b.config.Root, path)
}

// validatePath rejects empty paths, forbidden characters and, for a rooted
// backend, paths that would escape the root.
func (b *Backend) validatePath(path string) error {
	if err := safeio.ValidatePath(path); err != nil {
		return err
	}
	if b.config.Root == "" {
		return nil
	}

	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s escapes the backend root", safeio.ErrInvalidPath, path)
	}

	return nil
}

// checkClosed returns an error if the backend is closed.
func (b *Backend) checkClosed() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return safeio.ErrBackendClosed
	}
	return nil
}

// translateError maps host errors to safeio sentinels, keeping the original
// error in the chain.
func translateError(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errors.Join(safeio.ErrNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return errors.Join(safeio.ErrPermissionDenied, err)
	case errors.Is(err, syscall.EISDIR):
		return errors.Join(safeio.ErrNotAFile, err)
	case errors.Is(err, syscall.ENAMETOOLONG):
		return errors.Join(safeio.ErrInvalidPath, err)
	}
	return err
}

var _ safeio.Backend = (*Backend)(nil)
