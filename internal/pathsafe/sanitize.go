package pathsafe

import (
	"path"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxSegmentBytes keeps segments well below the common 255-byte
	// name limit, leaving room for the destination root.
	DefaultMaxSegmentBytes = 200
	// Placeholder replaces segments that sanitize to nothing.
	Placeholder = "_"

	replacement = '_'
	trimSet     = " ."
)

// Sanitizer rewrites remote paths into safe segment lists.
type Sanitizer struct {
	// Strict additionally replaces '#'.
	Strict bool
	// MaxSegmentBytes caps each segment; zero means DefaultMaxSegmentBytes.
	MaxSegmentBytes int
}

// Sanitize splits remotePath on '/' and sanitizes every segment independently.
func (s Sanitizer) Sanitize(remotePath string) []string {
	parts := strings.Split(remotePath, "/")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = s.Segment(p)
	}
	return out
}

// Segment sanitizes a single path segment.
func (s Sanitizer) Segment(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))
	for i, r := range segment {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(segment[i:]); size <= 1 {
				b.WriteRune(replacement)
				continue
			}
		}
		if s.forbidden(r) {
			b.WriteRune(replacement)
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), trimSet)
	out = shorten(out, s.maxBytes())
	if out == "" {
		return Placeholder
	}
	return out
}

func (s Sanitizer) maxBytes() int {
	if s.MaxSegmentBytes <= 0 {
		return DefaultMaxSegmentBytes
	}
	return s.MaxSegmentBytes
}

func (s Sanitizer) forbidden(r rune) bool {
	switch r {
	case '<', '>', ':', '"', '\\', '|', '?', '*', '/':
		return true
	case '#':
		return s.Strict
	}
	return r < 0x20 || r == 0x7f
}

// shorten fits s into limit bytes. The extension survives when it takes at
// most half the budget; otherwise the whole name is cut.
func shorten(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if ext := path.Ext(s); ext != "" && len(ext) <= limit/2 {
		stem := strings.TrimRight(truncate(s[:len(s)-len(ext)], limit-len(ext)), trimSet)
		if stem != "" {
			return stem + ext
		}
	}
	return strings.Trim(truncate(s, limit), trimSet)
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	if _, size := utf8.DecodeRuneInString(s[cut:]); cut+size <= limit {
		cut += size
	}
	return s[:cut]
}
