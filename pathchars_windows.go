//go:build windows

package safeio

func controlChars() []rune {
	chars := make([]rune, 0, 32)
	for r := rune(0); r < 32; r++ {
		chars = append(chars, r)
	}
	return chars
}

func invalidFileNameChars() []rune {
	return append(controlChars(), '"', '<', '>', '|', ':', '*', '?', '\\', '/')
}

func invalidPathChars() []rune {
	return append(controlChars(), '"', '<', '>', '|')
}
