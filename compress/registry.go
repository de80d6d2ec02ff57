package compress

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]Codec)
)

// Register makes a codec available by name, extension and magic bytes.
// Codec packages call it from init().
//
// Register panics if c is nil or its name is already registered.
func Register(c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()

	if c == nil {
		panic("compress: Register codec is nil")
	}
	if _, dup := codecs[c.Name()]; dup {
		panic("compress: Register called twice for codec " + c.Name())
	}
	codecs[c.Name()] = c
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c, nil
}

// Codecs returns the sorted names of registered codecs.
func Codecs() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForExtension returns the codec whose extension matches name's extension.
func ForExtension(name string) (Codec, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return nil, false
	}

	codecsMu.RLock()
	defer codecsMu.RUnlock()

	for _, c := range codecs {
		if c.Extension() == ext {
			return c, true
		}
	}
	return nil, false
}

// Detect rewinds src and matches its first bytes against the magic bytes of
// registered codecs. src is rewound again before returning.
func Detect(src io.ReadSeeker) (Codec, bool, error) {
	if err := Rewind(src); err != nil {
		return nil, false, err
	}
	head := make([]byte, 8)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, false, fmt.Errorf("compress: reading source: %w", err)
	}
	head = head[:n]
	if err := Rewind(src); err != nil {
		return nil, false, err
	}

	codecsMu.RLock()
	defer codecsMu.RUnlock()

	for _, c := range codecs {
		magic := c.Magic()
		if len(magic) > 0 && bytes.HasPrefix(head, magic) {
			return c, true, nil
		}
	}
	return nil, false, nil
}

// DecompressAuto detects the format of src and decompresses it with the
// matching registered codec. If no codec recognises the data the error
// matches ErrNotCompressed and the caller can use src as-is.
func DecompressAuto(src io.ReadSeeker) (*bytes.Reader, Codec, error) {
	c, ok, err := Detect(src)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: no registered codec recognises the input", ErrNotCompressed)
	}
	out, err := c.Decompress(src)
	if err != nil {
		return nil, c, err
	}
	return out, c, nil
}
