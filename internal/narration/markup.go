package narration

import (
	"regexp"
	"strings"
)

var (
	fencedCode  = regexp.MustCompile("(?s)```.*?```")
	markdownURL = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingMark = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	bulletMark  = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+\.)[ \t]+`)

	// Emphasis delimiters only count when paired. Underscores also need a word
	// boundary outside them, so identifiers like snake_case survive.
	strong     = regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*|\b__(\S(?:.*?\S)?)__\b`)
	em         = regexp.MustCompile(`\*(\S(?:[^*\n]*?\S)?)\*|\b_(\S(?:[^_\n]*?\S)?)_\b`)
	strike     = regexp.MustCompile(`~~(\S(?:.*?\S)?)~~`)
	inlineCode = regexp.MustCompile("`([^`\n]+)`")
	lineBreaks = regexp.MustCompile(`\s*\n+\s*`)
	spaces     = regexp.MustCompile(`[ \t]+`)
)

// CleanMarkup turns lesson markdown into plain text for a speech engine.
// Fenced code is dropped, links read as their text, and each line break
// becomes a sentence pause.
func CleanMarkup(text string) string {
	out := fencedCode.ReplaceAllString(text, "")
	out = markdownURL.ReplaceAllString(out, "$1")
	out = headingMark.ReplaceAllString(out, "")
	out = bulletMark.ReplaceAllString(out, "")
	out = strong.ReplaceAllString(out, "${1}${2}")
	out = em.ReplaceAllString(out, "${1}${2}")
	out = strike.ReplaceAllString(out, "$1")
	out = inlineCode.ReplaceAllString(out, "$1")

	lines := lineBreaks.Split(strings.TrimSpace(out), -1)
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		parts = append(parts, sentence(line))
	}
	return strings.Join(parts, " ")
}

// sentence ends s with punctuation so the engine pauses after it.
func sentence(s string) string {
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return s
	}
	return s + "."
}
