//go:build !windows

package safeio

func invalidFileNameChars() []rune {
	return []rune{0, '/'}
}

func invalidPathChars() []rune {
	return []rune{0}
}
