package sftp

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Errors specific to the SFTP backend.
var (
	ErrHostRequired = errors.New("sftp: host is required")
	ErrUserRequired = errors.New("sftp: user is required")
	ErrAuthRequired = errors.New("sftp: no authentication method provided (password or key_file required)")
)

// Config holds configuration for the SFTP backend.
type Config struct {
	// Host is the SFTP server hostname or IP address (required).
	Host string

	// Port is the SSH port. Default: 22.
	Port int

	// User is the SSH username (required).
	User string

	// Password is the SSH password.
	// Either Password or KeyFile must be provided.
	Password string

	// KeyFile is the path to an SSH private key file.
	// Either Password or KeyFile must be provided.
	KeyFile string

	// KeyPassphrase is the passphrase for encrypted private keys.
	KeyPassphrase string

	// Root is the base directory on the remote server.
	// All paths are relative to this directory.
	Root string

	// KnownHostsFile is the path to an OpenSSH known_hosts file used to
	// verify the server's host key. If empty, host keys are not verified.
	KnownHostsFile string

	// Timeout is the connection timeout in seconds.
	// Default: 30.
	Timeout int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Port:    22,
		Timeout: 30,
	}
}

// configKeys are the map keys ConfigFromMap understands. ConfigFromEnv
// reads each one from SAFEIO_SFTP_<KEY>.
var configKeys = []string{
	"host", "port", "user", "password", "key_file", "key_passphrase",
	"root", "known_hosts", "timeout",
}

// ConfigFromEnv reads the keys of ConfigFromMap from SAFEIO_SFTP_* variables,
// for example SAFEIO_SFTP_HOST and SAFEIO_SFTP_KEY_FILE.
func ConfigFromEnv() (Config, error) {
	m := make(map[string]string)
	for _, key := range configKeys {
		if v := os.Getenv("SAFEIO_SFTP_" + strings.ToUpper(key)); v != "" {
			m[key] = v
		}
	}
	return ConfigFromMap(m)
}

// ConfigFromMap builds a Config from registry settings on top of
// DefaultConfig. "pass" is accepted as an alias of "password". A port or
// timeout that is not a positive integer is an error.
func ConfigFromMap(m map[string]string) (Config, error) {
	config := DefaultConfig()
	if v, ok := m["pass"]; ok {
		config.Password = v
	}

	for _, key := range configKeys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch key {
		case "host":
			config.Host = v
		case "user":
			config.User = v
		case "password":
			config.Password = v
		case "key_file":
			config.KeyFile = v
		case "key_passphrase":
			config.KeyPassphrase = v
		case "root":
			config.Root = v
		case "known_hosts":
			config.KnownHostsFile = v
		case "port", "timeout":
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return Config{}, fmt.Errorf("sftp: %s must be a positive integer, got %q", key, v)
			}
			if key == "port" {
				config.Port = n
			} else {
				config.Timeout = n
			}
		}
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Host == "" {
		return ErrHostRequired
	}
	if c.User == "" {
		return ErrUserRequired
	}
	if c.Password == "" && c.KeyFile == "" {
		return ErrAuthRequired
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("sftp: port %d out of range", c.Port)
	}
	return nil
}
