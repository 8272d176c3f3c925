package extract

import (
	"regexp"
	"strings"
)

// Contract pages carry fixed section headers. Scoping a rule to its section
// keeps unrelated values (a store phone number, a promo amount) from
// bleeding into customer fields.
const (
	SectionInfo     = "YOUR INFORMATION:"
	SectionDevice   = "YOUR DEVICE DETAILS:"
	SectionRatePlan = "YOUR RATE PLAN DETAILS:"
	SectionAddOns   = "YOUR RATE PLAN ADD-ONS:"
)

// sectionEnds maps a section start marker to the markers that terminate it.
var sectionEnds = map[string][]string{
	SectionInfo:     {"YOUR DEVICE DETAILS:", "YOUR DEVICE DETAILS", "YOUR RATE PLAN DETAILS:", "CRITICAL INFORMATION SUMMARY"},
	SectionDevice:   {"YOUR RATE PLAN DETAILS:", "YOUR RATE PLAN DETAILS", "MINIMUM MONTHLY CHARGE", "TOTAL MONTHLY CHARGE"},
	SectionRatePlan: {"YOUR RATE PLAN ADD-ONS:", "YOUR PROMOTIONS:", "TOTAL MONTHLY CHARGE:", "ONE-TIME CHARGES:"},
	SectionAddOns:   {"YOUR PROMOTIONS:", "TOTAL MONTHLY CHARGE:", "ONE-TIME CHARGES:"},
}

// markerRes holds one case-insensitive literal pattern per known marker,
// compiled once at startup.
var markerRes = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp)
	add := func(m string) {
		if _, ok := res[m]; !ok {
			res[m] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(m))
		}
	}
	for start, ends := range sectionEnds {
		add(start)
		for _, e := range ends {
			add(e)
		}
	}
	return res
}()

// Document is one normalized OCR text with lazily resolved sections.
// A Document is request-scoped and not safe for concurrent use.
type Document struct {
	Text     string
	sections map[string]string
}

func NewDocument(text string) *Document {
	return &Document{Text: text, sections: make(map[string]string)}
}

// Section returns the text between marker and the earliest of its end
// markers. Missing or empty sections return ("", false).
func (d *Document) Section(marker string) (string, bool) {
	if s, ok := d.sections[marker]; ok {
		return s, s != ""
	}
	s := extractSection(d.Text, marker, sectionEnds[marker])
	d.sections[marker] = s
	return s, s != ""
}

func extractSection(text, start string, ends []string) string {
	loc := markerRes[start].FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	end := len(rest)
	for _, em := range ends {
		if m := markerRes[em].FindStringIndex(rest); m != nil && m[0] < end {
			end = m[0]
		}
	}
	return strings.TrimSpace(rest[:end])
}
