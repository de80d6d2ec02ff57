package safeio

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// forbiddenChars is the union of the host's invalid file-name and invalid
// path characters, sorted and de-duplicated. It is computed once.
var forbiddenChars = sync.OnceValue(func() []rune {
	set := make(map[rune]struct{})
	for _, r := range invalidFileNameChars() {
		set[r] = struct{}{}
	}
	for _, r := range invalidPathChars() {
		set[r] = struct{}{}
	}
	chars := make([]rune, 0, len(set))
	for r := range set {
		chars = append(chars, r)
	}
	slices.Sort(chars)
	return chars
})

// ForbiddenChars returns the characters that may not appear in a file or
// directory name on this host. The returned slice is a copy.
func ForbiddenChars() []rune {
	return slices.Clone(forbiddenChars())
}

// IsForbiddenChar reports whether r may not appear in a file or directory name.
func IsForbiddenChar(r rune) bool {
	_, found := slices.BinarySearch(forbiddenChars(), r)
	return found
}

// ValidateName checks a single path element, such as a file name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPath)
	}
	if i := strings.IndexFunc(name, IsForbiddenChar); i >= 0 {
		r := []rune(name[i:])[0]
		return fmt.Errorf("%w: %q contains forbidden character %q", ErrInvalidPath, name, r)
	}
	return nil
}

// ValidatePath checks every element of p for forbidden characters.
// Separators and a leading volume name are allowed.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	rest := p[len(filepath.VolumeName(p)):]
	for _, elem := range splitPath(rest) {
		if err := ValidateName(elem); err != nil {
			return err
		}
	}
	return nil
}

// splitPath splits on both the host separator and '/', which every backend
// accepts.
func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
}
