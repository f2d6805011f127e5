// Package sanitize cleans text and identifiers before they enter the
// pipeline or the vector store.
//
// Text normalization strips code points that cannot survive UTF-8
// interchange (extraction backends on some platforms yield lossy
// decodings); identifier sanitization keeps collection names within the
// ^[a-z0-9_]{1,64}$ charset the stores require.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// Text normalizes raw extracted text so it is guaranteed representable
// in UTF-8 output.
//
// Invalid byte sequences and surrogate code points are dropped rather
// than replaced, then leading/trailing whitespace is trimmed. Text never
// fails; bad input only degrades. It is idempotent: normalizing already
// normalized text returns it unchanged.
func Text(s string) string {
	if isCleanUTF8(s) {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		// A RuneError of size 1 marks an invalid byte, not a literal
		// U+FFFD present in the input.
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if r >= surrogateMin && r <= surrogateMax {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// isCleanUTF8 reports whether s is valid UTF-8 with no surrogate code
// points, allowing Text to skip the rebuild on the common path.
func isCleanUTF8(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r >= surrogateMin && r <= surrogateMax {
			return false
		}
	}
	return true
}
