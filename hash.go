package safeio

import (
	"crypto/md5"  //nolint:gosec // MD5 used for content verification, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for content verification, not security
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/zeebo/blake3"
)

// HashType names a content digest used to verify data read from a backend.
type HashType string

const (
	HashNone   HashType = ""
	HashMD5    HashType = "md5"
	HashSHA1   HashType = "sha1"
	HashSHA256 HashType = "sha256"
	HashCRC32C HashType = "crc32c"
	HashBLAKE3 HashType = "blake3"
)

// String returns the string representation of the hash type.
func (h HashType) String() string {
	return string(h)
}

// SupportedHashes returns all supported hash types.
func SupportedHashes() []HashType {
	return []HashType{HashMD5, HashSHA1, HashSHA256, HashCRC32C, HashBLAKE3}
}

// ParseHashType converts a case-insensitive name to a HashType.
func ParseHashType(s string) (HashType, error) {
	t := HashType(strings.ToLower(strings.TrimSpace(s)))
	for _, h := range SupportedHashes() {
		if h == t {
			return t, nil
		}
	}
	return HashNone, fmt.Errorf("%w: unknown hash type %q", ErrInvalidArgument, s)
}

// NewHash creates a new hash.Hash for the given hash type.
// Returns nil if the hash type is not supported.
func NewHash(t HashType) hash.Hash {
	switch t {
	case HashMD5:
		return md5.New() //nolint:gosec // MD5 used for content verification
	case HashSHA1:
		return sha1.New() //nolint:gosec // SHA1 used for content verification
	case HashSHA256:
		return sha256.New()
	case HashCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case HashBLAKE3:
		return blake3.New()
	default:
		return nil
	}
}

// HashReader computes the hex-encoded hash of everything read from r.
func HashReader(r io.Reader, t HashType) (string, error) {
	h := NewHash(t)
	if h == nil {
		return "", fmt.Errorf("%w: unknown hash type %q", ErrInvalidArgument, t)
	}

	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes the hex-encoded hash of data.
// Returns an empty string for an unsupported hash type.
func HashBytes(data []byte, t HashType) string {
	h := NewHash(t)
	if h == nil {
		return ""
	}

	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
