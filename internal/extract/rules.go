package extract

import (
	"regexp"
	"strings"
)

// Record field names, matching the JSON keys of ContractRecord.
const (
	FieldCustomerName       = "customer_name"
	FieldPhone              = "phone"
	FieldAddress            = "address"
	FieldDeviceModel        = "device_model"
	FieldIMEI               = "imei"
	FieldSerialNumber       = "serial_number"
	FieldSIMNumber          = "sim_number"
	FieldPlanName           = "plan_name"
	FieldPlanCharge         = "plan_charge"
	FieldMinimumMonthlyPlan = "minimum_monthly_plan"
	FieldDownPayment        = "down_payment"
	FieldContractDate       = "contract_date"
	FieldContractEndDate    = "contract_end_date"
	FieldOrderNumber        = "order_number"
	FieldActivity           = "activity"
)

// Strategy tags a matcher's approach.
type Strategy int

const (
	// LabelAnchored matches a known label followed by its value. Higher
	// precision, always tried before format-anchored fallbacks.
	LabelAnchored Strategy = iota
	// FormatAnchored matches a value by shape alone, for pages where OCR
	// garbled the label. First occurrence in document order wins.
	FormatAnchored
)

// Matcher is one pattern alternative within a rule.
type Matcher struct {
	Strategy Strategy
	match    func(text string) (string, bool)
}

const labelValueMax = 200

// Label matches "Label: value" with the value on the same or the next line.
func Label(label string) Matcher {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(label) + `\s*:\s*([^\n]+)`)
	return Matcher{Strategy: LabelAnchored, match: func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		if len(v) > labelValueMax {
			v = strings.TrimSpace(v[:labelValueMax])
		}
		return v, v != ""
	}}
}

// LabelPattern matches a label-anchored regular expression whose first
// capture group is the value.
func LabelPattern(re *regexp.Regexp) Matcher {
	return Matcher{Strategy: LabelAnchored, match: func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil || m[1] == "" {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	}}
}

// LabelBlock captures everything after "label:" up to the next stop label
// or an all-caps header line. Used for multi-line values such as addresses.
func LabelBlock(label string, stops ...string) Matcher {
	alts := make([]string, len(stops))
	for i, s := range stops {
		alts[i] = regexp.QuoteMeta(s)
	}
	re := regexp.MustCompile(`(?is)\b` + regexp.QuoteMeta(label) +
		`\s*:\s*(.*?)(?:\n(?:` + strings.Join(alts, "|") + `)\s*:|\n[A-Z][A-Z ]{3,}:|$)`)
	return Matcher{Strategy: LabelAnchored, match: func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}}
}

// Format matches a value by shape. If the pattern has a capture group the
// group is the value, otherwise the whole match.
func Format(re *regexp.Regexp) Matcher {
	return Matcher{Strategy: FormatAnchored, match: func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		v := m[0]
		if len(m) > 1 && m[1] != "" {
			v = m[1]
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}}
}

// FormatFunc wraps a custom shape matcher.
func FormatFunc(fn func(string) (string, bool)) Matcher {
	return Matcher{Strategy: FormatAnchored, match: fn}
}

// Rule maps one record field to an ordered list of matchers. Matchers run
// in priority order, each over the rule's section scopes in order; the
// first value that survives the cut and transform wins. Rules are pure
// functions of the document text and are built once at startup.
type Rule struct {
	Field    string
	Sections []string // preferred section markers; "" is the whole document
	Matchers []Matcher

	// Cut truncates the matched value at the first occurrence of an
	// OCR-merged trailing label ("Jane Doe Phone Number:" -> "Jane Doe").
	Cut *regexp.Regexp

	// Transform post-processes the matched value (digit normalization,
	// date canonicalization, money parsing). A failed transform counts as
	// no match and the next alternative is tried.
	Transform func(string) (string, bool)
}

// Apply runs the rule against doc and returns the extracted value, or
// ("", false) when nothing matched. Apply never fails.
func (r Rule) Apply(doc *Document) (string, bool) {
	scopes := r.scopes(doc)
	for _, m := range r.Matchers {
		for _, scope := range scopes {
			v, ok := m.match(scope)
			if !ok {
				continue
			}
			if r.Cut != nil {
				if loc := r.Cut.FindStringIndex(v); loc != nil {
					v = v[:loc[0]]
				}
			}
			v = collapseSpaces(v)
			if v == "" {
				continue
			}
			if r.Transform != nil {
				if v, ok = r.Transform(v); !ok {
					continue
				}
			}
			return v, true
		}
	}
	return "", false
}

// scopes resolves the rule's preferred sections against doc. Sections that
// are absent are skipped; when none resolve the whole document is scanned,
// so section-scoped rules still work on unstructured text.
func (r Rule) scopes(doc *Document) []string {
	if len(r.Sections) == 0 {
		return []string{doc.Text}
	}
	out := make([]string, 0, len(r.Sections))
	for _, name := range r.Sections {
		if name == "" {
			out = append(out, doc.Text)
			continue
		}
		if s, ok := doc.Section(name); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{doc.Text}
	}
	return out
}

var (
	customerCut = regexp.MustCompile(`(?i)\b(?:Monthly Payment Method|First Bill Date|User Name|Account Number|Phone Number|Default Voicemail Password|Address)\s*:`)
	modelCut    = regexp.MustCompile(`(?i)\b(?:Early Cancellation Fee|IMEI/ESN/MEID|SIM Number|Commitment Period|Start Date|End Date)\b`)
	serialCut   = regexp.MustCompile(`(?i)\b(?:IMEI|SIM Number|Model)\b`)
	orderCut    = regexp.MustCompile(`(?i)\b(?:Store|Date|Activity)\s*:`)
	activityCut = regexp.MustCompile(`(?i)\b(?:Store Phone Number|Store|Date)\s*:`)
	planCut     = regexp.MustCompile(`(?i)\b(?:Monthly Rate Plan Charge|Minimum Monthly Charge)\s*:`)

	phoneBounded = regexp.MustCompile(`(?:^|[^0-9])(\(?\d{3}\)?[- ]?\d{3}[- ]?\d{4})(?:[^0-9]|$)`)
	imeiShape    = regexp.MustCompile(`(?:^|[^0-9])(\d{15})(?:[^0-9]|$)`)
	simShape     = regexp.MustCompile(`(?:^|[^0-9])(\d{18,22})(?:[^0-9]|$)`)

	planChargeMonthly = regexp.MustCompile(`(?i)Monthly Rate Plan Charge\s*:\s*\$?\s*([0-9.,]+)`)
	planChargeMinimum = regexp.MustCompile(`(?i)Minimum Monthly Charge\s*:\s*\$?\s*([0-9.,]+)`)
	planChargeOnLine  = regexp.MustCompile(`(?i)\bPlan\s*:[^\n]*?\$\s*([0-9.,]+)`)
	minimumHeader     = regexp.MustCompile(`(?i)MINIMUM MONTHLY CHARGE\s*\(FOR DEVICE AND RATE PLAN\)\s*:\s*\$?\s*([0-9.,]+)`)
	downPaymentLabel  = regexp.MustCompile(`(?i)\bDown Payment\s*:\s*\$?\s*([0-9.,]+)`)

	trailingMoney = regexp.MustCompile(`\s*\$\s*\d[\d,]*(?:\.\d{1,2})?\s*$`)

	planHeaderLine = regexp.MustCompile(`(?i)^(?:YOUR RATE PLAN DETAILS|YOUR RATE PLAN ADD-ONS|MINIMUM MONTHLY CHARGE|TOTAL MONTHLY CHARGE)`)
	planLabelLine  = regexp.MustCompile(`(?i)^Plan\s*:`)
)

func labeledDate(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(label) + `\s*:\s*(` + dateShape + `)`)
}

// stripTrailingMoney drops a trailing dollar amount merged into a plan
// name line ("Gold Unlimited $49.99" -> "Gold Unlimited").
func stripTrailingMoney(v string) (string, bool) {
	v = strings.TrimSpace(trailingMoney.ReplaceAllString(v, ""))
	return v, v != ""
}

// firstPlanDescription picks the first descriptive line in scope: not a
// header, not a label line. Fallback for contracts that list the plan as a
// bullet instead of a "Plan:" field.
func firstPlanDescription(text string) (string, bool) {
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.Trim(ln, "•*- \t")
		if ln == "" || strings.Contains(ln, ":") {
			continue
		}
		if planHeaderLine.MatchString(ln) || planLabelLine.MatchString(ln) {
			continue
		}
		return ln, true
	}
	return "", false
}

// DefaultRules is the static rule table: one rule per record field, built
// once at startup and read-only afterwards.
func DefaultRules() []Rule {
	return []Rule{
		{
			Field:    FieldCustomerName,
			Sections: []string{SectionInfo},
			Matchers: []Matcher{
				Label("Customer Name"),
				Label("Company Name"),
				Label("Customer ID"),
				Label("Account Number"),
				Label("Customer"),
			},
			Cut: customerCut,
		},
		{
			Field:    FieldPhone,
			Sections: []string{SectionInfo},
			Matchers: []Matcher{
				Label("Phone Number"),
				Label("Phone"),
				Format(phoneBounded),
			},
			Transform: transformPhone,
		},
		{
			Field:    FieldAddress,
			Sections: []string{SectionInfo},
			Matchers: []Matcher{
				LabelBlock("Address",
					"Monthly Payment Method", "First Bill Date", "User Name",
					"Account Number", "Phone Number", "Default Voicemail Password",
					"Customer ID"),
			},
		},
		{
			Field:    FieldDeviceModel,
			Sections: []string{SectionDevice},
			Matchers: []Matcher{
				Label("Model"),
				Label("Device"),
			},
			Cut: modelCut,
		},
		{
			Field:    FieldIMEI,
			Sections: []string{SectionDevice},
			Matchers: []Matcher{
				Label("IMEI/ESN/MEID"),
				Label("IMEI"),
				Format(imeiShape),
			},
			Transform: digitRun(10, 20),
		},
		{
			Field:    FieldSerialNumber,
			Sections: []string{SectionDevice},
			Matchers: []Matcher{
				Label("Serial Number"),
				Label("Serial"),
			},
			Cut: serialCut,
		},
		{
			Field:    FieldSIMNumber,
			Sections: []string{SectionDevice},
			Matchers: []Matcher{
				Label("SIM Number"),
				Label("SIM"),
				Format(simShape),
			},
			Transform: digitRun(18, 22),
		},
		{
			Field:    FieldPlanName,
			Sections: []string{SectionRatePlan, ""},
			Matchers: []Matcher{
				Label("Plan"),
				FormatFunc(firstPlanDescription),
			},
			Cut:       planCut,
			Transform: stripTrailingMoney,
		},
		{
			Field:    FieldPlanCharge,
			Sections: []string{SectionRatePlan, ""},
			Matchers: []Matcher{
				LabelPattern(planChargeMonthly),
				LabelPattern(planChargeMinimum),
				LabelPattern(planChargeOnLine),
			},
			Transform: transformMoney,
		},
		{
			Field: FieldMinimumMonthlyPlan,
			Matchers: []Matcher{
				LabelPattern(minimumHeader),
			},
			Transform: transformMoney,
		},
		{
			Field: FieldDownPayment,
			Matchers: []Matcher{
				LabelPattern(downPaymentLabel),
			},
			Transform: transformMoney,
		},
		{
			Field:    FieldContractDate,
			Sections: []string{SectionDevice, ""},
			Matchers: []Matcher{
				LabelPattern(labeledDate("Contract Date")),
				LabelPattern(labeledDate("Start Date")),
			},
			Transform: transformDate,
		},
		{
			Field:    FieldContractEndDate,
			Sections: []string{SectionDevice, ""},
			Matchers: []Matcher{
				LabelPattern(labeledDate("Contract End Date")),
				LabelPattern(labeledDate("End Date")),
			},
			Transform: transformDate,
		},
		{
			Field: FieldOrderNumber,
			Matchers: []Matcher{
				Label("Order Number"),
				Label("Order #"),
				Label("Order No"),
			},
			Cut: orderCut,
		},
		{
			Field: FieldActivity,
			Matchers: []Matcher{
				Label("Activity"),
			},
			Cut: activityCut,
		},
	}
}
