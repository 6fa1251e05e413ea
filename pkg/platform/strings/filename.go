package strings

import (
	"path"
	"strings"
	"unicode"
)

const maxFilenameLength = 255

// SanitizeFilename reduces an uploaded filename to a safe basename: directory
// components are dropped, whitespace becomes underscores, and only ASCII
// letters, digits, '.', '-' and '_' survive. Leading dots are stripped so the
// result is never hidden or a relative path. Returns "" when nothing survives.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}

	cleaned := strings.Trim(strings.TrimLeft(b.String(), "."), "_")
	if len(cleaned) > maxFilenameLength {
		cleaned = cleaned[len(cleaned)-maxFilenameLength:]
	}
	return cleaned
}
