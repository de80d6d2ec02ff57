// Package sftp provides an SFTP backend for safeio.
//
// Basic usage with password authentication:
//
//	backend, err := sftp.New(sftp.Config{
//	    Host:     "example.com",
//	    User:     "username",
//	    Password: "password",
//	})
//
// With SSH key authentication and host key verification:
//
//	backend, err := sftp.New(sftp.Config{
//	    Host:           "example.com",
//	    User:           "username",
//	    KeyFile:        "/path/to/id_ed25519",
//	    KnownHostsFile: "/home/me/.ssh/known_hosts",
//	})
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/grokify/safeio"
)

func init() {
	safeio.Register("sftp", NewFromConfig)
}

// Backend implements safeio.Backend for SFTP.
type Backend struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	config     Config
	closed     bool
	mu         sync.RWMutex
}

// New connects to the server described by cfg.
func New(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30
	}

	sshConfig, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	sshClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("sftp: SSH connection failed: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		if closeErr := sshClient.Close(); closeErr != nil {
			return nil, fmt.Errorf("sftp: SFTP session failed: %w (also failed to close SSH: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("sftp: SFTP session failed: %w", err)
	}

	return &Backend{
		sshClient:  sshClient,
		sftpClient: sftpClient,
		config:     cfg,
	}, nil
}

// NewFromConfig creates a new SFTP backend from a config map.
// This is used by the safeio registry.
func NewFromConfig(configMap map[string]string) (safeio.Backend, error) {
	cfg, err := ConfigFromMap(configMap)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// clientConfig builds the SSH client configuration for cfg.
func clientConfig(cfg Config) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}

	if cfg.KeyFile != "" {
		keyAuth, err := keyFileAuth(cfg.KeyFile, cfg.KeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("sftp: loading key file: %w", err)
		}
		authMethods = append(authMethods, keyAuth)
	}

	if len(authMethods) == 0 {
		return nil, ErrAuthRequired
	}

	hostKeyCallback, err := hostKeyCallback(cfg.KnownHostsFile)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		Timeout:         time.Duration(cfg.Timeout) * time.Second,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// hostKeyCallback verifies host keys against knownHostsFile. Without a file
// host keys are not checked.
func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // G106: opt-in verification via KnownHostsFile
	}
	callback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("sftp: loading known_hosts: %w", err)
	}
	return callback, nil
}

// keyFileAuth creates an SSH auth method from a private key file.
func keyFileAuth(keyFile, passphrase string) (ssh.AuthMethod, error) {
	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// NewWriter creates or truncates the remote file at p, creating parent
// directories.
func (b *Backend) NewWriter(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := b.check(ctx, p); err != nil {
		return nil, err
	}

	fullPath := b.fullPath(p)

	if err := b.sftpClient.MkdirAll(path.Dir(fullPath)); err != nil {
		return nil, fmt.Errorf("sftp: creating directory: %w", b.translateError(err, p))
	}

	f, err := b.sftpClient.Create(fullPath)
	if err != nil {
		return nil, b.translateError(err, p)
	}

	return f, nil
}

// NewReader opens the remote file at p for reading.
func (b *Backend) NewReader(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := b.check(ctx, p); err != nil {
		return nil, err
	}

	f, err := b.sftpClient.Open(b.fullPath(p))
	if err != nil {
		return nil, b.translateError(err, p)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, b.translateError(err, p)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", safeio.ErrNotAFile, p)
	}

	return f, nil
}

// Exists checks if a path exists.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	if err := b.check(ctx, p); err != nil {
		return false, err
	}

	_, err := b.sftpClient.Stat(b.fullPath(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, b.translateError(err, p)
	}
	return true, nil
}

// Stat returns metadata about a path.
func (b *Backend) Stat(ctx context.Context, p string) (safeio.ObjectInfo, error) {
	if err := b.check(ctx, p); err != nil {
		return safeio.ObjectInfo{}, err
	}

	info, err := b.sftpClient.Stat(b.fullPath(p))
	if err != nil {
		return safeio.ObjectInfo{}, b.translateError(err, p)
	}

	return safeio.ObjectInfo{
		Path:    p,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// Close closes the SFTP session and the SSH connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.sftpClient != nil {
		if err := b.sftpClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.sshClient != nil {
		if err := b.sshClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("sftp: close errors: %w", errors.Join(errs...))
	}
	return nil
}

// fullPath returns the full remote path.
func (b *Backend) fullPath(p string) string {
	if b.config.Root == "" {
		return p
	}
	return path.Join(b.config.Root, p)
}

func (b *Backend) check(ctx context.Context, p string) error {
	if err := b.checkClosed(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := safeio.ValidatePath(p); err != nil {
		return err
	}
	if b.config.Root != "" {
		cleaned := path.Clean(p)
		if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return fmt.Errorf("%w: %s escapes the backend root", safeio.ErrInvalidPath, p)
		}
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

// translateError converts SFTP errors to safeio errors.
// The path parameter provides context for error messages.
func (b *Backend) translateError(err error, p string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", safeio.ErrNotFound, p)
	}

	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s", safeio.ErrPermissionDenied, p)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("sftp: network error for %q: %w", p, err)
	}

	return fmt.Errorf("sftp: error for %q: %w", p, err)
}

var _ safeio.Backend = (*Backend)(nil)
