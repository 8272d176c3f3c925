package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateShape matches the date forms that appear in these contracts: textual
// month ("November 19, 2025"), ISO, and slash-separated numeric dates.
const dateShape = `[A-Za-z]{3,9}\s+\d{1,2},\s+\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}`

// dateFormats are tried in order. Day/month comes before month/day so an
// unambiguous "12/03/2024" reads as 12 March; "01/15/2024" still parses
// because a fifteenth month is rejected and the month/day form picks it up.
var dateFormats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"2/1/2006",
	"1/2/2006",
}

var trailingSeps = regexp.MustCompile(`[;|]+$`)

// CanonicalDate parses a raw date fragment into a calendar day.
func CanonicalDate(raw string) (time.Time, bool) {
	s := collapseSpaces(raw)
	s = strings.TrimSpace(trailingSeps.ReplaceAllString(s, ""))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func transformDate(v string) (string, bool) {
	t, ok := CanonicalDate(v)
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

var moneyAmount = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)

// transformMoney pulls a plain decimal amount out of a matched fragment,
// e.g. "$1,234.50" -> "1234.50".
func transformMoney(v string) (string, bool) {
	s := strings.ReplaceAll(v, ",", "")
	m := moneyAmount.FindString(s)
	if m == "" {
		return "", false
	}
	return m, true
}

var nonDigits = regexp.MustCompile(`\D+`)

func digitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// digitRun builds a transform that strips separators and returns the
// longest digit run within [min, max]. OCR frequently breaks IMEIs and
// ICCIDs with dashes and spaces.
func digitRun(min, max int) func(string) (string, bool) {
	re := regexp.MustCompile(`\d{` + strconv.Itoa(min) + `,` + strconv.Itoa(max) + `}`)
	return func(v string) (string, bool) {
		runs := re.FindAllString(digitsOnly(v), -1)
		if len(runs) == 0 {
			return "", false
		}
		best := runs[0]
		for _, r := range runs[1:] {
			if len(r) > len(best) {
				best = r
			}
		}
		return best, true
	}
}

var phoneShape = regexp.MustCompile(`\(?\d{3}\)?\s*[- ]?\s*\d{3}\s*[- ]?\s*\d{4}`)

// transformPhone extracts a phone-shaped run and keeps the last ten digits,
// dropping any country code OCR picked up.
func transformPhone(v string) (string, bool) {
	m := phoneShape.FindString(v)
	if m == "" {
		return "", false
	}
	digits := digitsOnly(m)
	if len(digits) < 10 {
		return "", false
	}
	return digits[len(digits)-10:], true
}
