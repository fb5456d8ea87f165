package storage

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nonASCII        = regexp.MustCompile(`[^\x00-\x7F]+`)
	repeatedUnders  = regexp.MustCompile(`_{2,}`)
	unsafePathChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
)

// MetadataFilename sanitizes a filename so it is safe to store as S3 object
// metadata, which must be ASCII.
func MetadataFilename(filename string) string {
	s := nonASCII.ReplaceAllString(filename, "_")
	s = repeatedUnders.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// SafeFilename builds a cross-platform safe filename from a title and an
// extension (without dot).
func SafeFilename(title, ext string) string {
	const maxLen = 120

	name := strings.TrimSpace(title)
	if name == "" {
		name = "media"
	}
	name = unsafePathChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if len(name) > maxLen {
		// Cut on a rune boundary so multi-byte titles stay valid UTF-8.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}

	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "mp4"
	}
	return name + "." + ext
}
