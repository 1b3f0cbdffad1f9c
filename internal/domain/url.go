package domain

import (
	"regexp"
	"strings"
)

// sourceURLPattern accepts youtube.com and youtu.be URLs with an optional
// scheme and www. prefix, followed by a non-empty path.
var sourceURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)

// ValidSourceURL reports whether raw matches the accepted source-host pattern.
func ValidSourceURL(raw string) bool {
	return sourceURLPattern.MatchString(raw)
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID pulls the video identifier out of a source URL.
// Returns "" when no identifier can be found.
func ExtractVideoID(raw string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(raw); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
var filenameSpaces = regexp.MustCompile(`\s+`)

// SanitizeFilename strips a display title down to a safe attachment
// filename, capped at 100 characters. Falls back when nothing survives.
func SanitizeFilename(name, fallback string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "")
	s = filenameSpaces.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return fallback
	}
	return s
}
