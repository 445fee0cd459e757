package export

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"|?*\\/]`)
	leadingDots          = regexp.MustCompile(`^\.+`)
	trailingDots         = regexp.MustCompile(`\.+$`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes name safe to use as a file name on common file
// systems. An empty result becomes "untitled".
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.C) {
			return -1
		}
		return r
	}, name)
	name = leadingDots.ReplaceAllString(name, "")
	name = trailingDots.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	return name
}
