package models

import (
	"fmt"
	"strings"
)

// reservedRunes are characters that are illegal in file names on at least
// one supported filesystem.
const reservedRunes = `/\:*?"<>|`

// SafeFileName converts an asset title into a filesystem-safe file name.
// Reserved characters and control characters become underscores; all other
// Unicode (including emoji and CJK) passes through unchanged so titles
// round-trip exactly. Trailing dots and spaces are trimmed since Windows
// rejects them.
func SafeFileName(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if r < 0x20 || strings.ContainsRune(reservedRunes, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	name := strings.TrimRight(b.String(), ". ")
	if name == "" {
		name = "untitled"
	}
	return name
}

// AssignDestNames maps each asset ID to a unique destination base name
// (no extension). When two sanitized titles collide, later assets get the
// asset ID appended so downloads never overwrite each other.
func AssignDestNames(worklist Worklist) map[int64]string {
	names := make(map[int64]string, len(worklist))
	seen := make(map[string]bool, len(worklist))

	for _, a := range worklist {
		name := SafeFileName(a.Title)
		if seen[strings.ToLower(name)] {
			name = fmt.Sprintf("%s [%d]", name, a.ID)
		}
		seen[strings.ToLower(name)] = true
		names[a.ID] = name
	}
	return names
}
