package fixtures

import (
	"strings"
	"unicode"
)

// StripExtension removes everything from the first dot of a file name, so that
// flavoured fixtures such as "foo.fir.kt" map to "foo".
func StripExtension(name string) string {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// Identifier sanitises a name into an exported Go identifier: characters that are not
// letters or digits become underscores and the first letter is upper-cased.
// A name starting with a digit is prefixed with an underscore.
func Identifier(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case unicode.IsLetter(r):
			if i == 0 {
				r = unicode.ToUpper(r)
			}
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
