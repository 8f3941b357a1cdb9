package export

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultTitle is used when a sanitized title comes out empty.
const DefaultTitle = "Movie"

// SanitizeTitle reduces a draft title to letters, digits and spaces; every
// other rune becomes an underscore. The result is trimmed, truncated to
// maxLen runes, and falls back to DefaultTitle when nothing survives.
func SanitizeTitle(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	if cleaned == "" {
		return DefaultTitle
	}
	return cleaned
}

// OutputPath picks a non-colliding <title>[-N].mp4 path under dir, trying
// suffixes -2 through -999 before giving up on a random suffix. An existing
// file is never overwritten.
func OutputPath(dir, title string) string {
	base := filepath.Join(dir, title+".mp4")
	if !fileExists(base) {
		return base
	}

	for n := 2; n <= 999; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%d.mp4", title, n))
		if !fileExists(candidate) {
			return candidate
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%08x.mp4", title, rand.Uint32()))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
