package validation

import (
	"path/filepath"
	"regexp"
	"strings"
)

const maxBaseNameLength = 200

var illegalChars = []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}

var safeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// SanitizeFilename makes an arbitrary string safe to use as a file name.
// Illegal filesystem characters are replaced with underscores and the base
// name is capped at 200 characters, preserving the extension.
func SanitizeFilename(name string) string {
	for _, ch := range illegalChars {
		name = strings.ReplaceAll(name, ch, "_")
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	// Cap by runes, not bytes, so multi-byte titles are never cut
	// mid-character.
	if runes := []rune(base); len(runes) > maxBaseNameLength {
		base = string(runes[:maxBaseNameLength])
	}
	return base + ext
}

// IsSafeFilename reports whether a client-supplied filename may be resolved
// within the download directory. It rejects traversal sequences and anything
// outside a conservative character set. Callers must still verify the joined
// path stays inside the directory before opening it.
func IsSafeFilename(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	return safeNamePattern.MatchString(name)
}
