package gitlab

import (
	"regexp"
	"strings"
)

var (
	whitespaceRE   = regexp.MustCompile(`\s+`)
	invalidCharsRE = regexp.MustCompile(`[^a-z0-9.-]`)
	hyphenRunRE    = regexp.MustCompile(`-{2,}`)
	edgeHyphensRE  = regexp.MustCompile(`(^-+)|(-+$)`)
	trailingSpecRE = regexp.MustCompile(`(\.git|\.atom|\.)$`)
)

// Slug converts a display name into a mirror-store path segment: trimmed,
// lowercased, whitespace collapsed to hyphens, every character outside
// [a-z0-9.-] dropped, hyphen runs collapsed, edge hyphens stripped, and a
// trailing ".", ".git", or ".atom" removed.
//
// A blank input cannot produce a usable path and means the caller skipped
// validation; Slug panics rather than building a broken mirror path.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		panic("gitlab: cannot slugify a blank name")
	}

	s = whitespaceRE.ReplaceAllString(s, "-")
	s = invalidCharsRE.ReplaceAllString(s, "")
	// Dropped characters can leave adjacent hyphens ("Data & Friends" →
	// "data--friends"); the mirror store collapses those in its own paths.
	s = hyphenRunRE.ReplaceAllString(s, "-")
	s = edgeHyphensRE.ReplaceAllString(s, "")
	s = trailingSpecRE.ReplaceAllString(s, "")
	return s
}
