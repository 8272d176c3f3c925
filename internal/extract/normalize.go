package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spaceRuns = regexp.MustCompile(`[ \t]+`)
	blankRuns = regexp.MustCompile(`\n{2,}`)
	wsRuns    = regexp.MustCompile(`\s+`)
)

// Normalize cleans raw OCR output for pattern matching: carriage returns
// become newlines, non-printable characters are dropped, horizontal
// whitespace runs collapse to one space and blank-line runs to one newline.
// Line boundaries are preserved since they usually mark field boundaries.
// Deterministic; empty or all-noise input yields "", never an error.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = stripNonPrintable(s)
	s = spaceRuns.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

func stripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(wsRuns.ReplaceAllString(s, " "))
}
