package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contractiq/contract-ocr-service/internal/models"
)

// ErrNoExtractableText reports that OCR produced no usable text at all.
// Distinct from a successfully assembled all-null record, which means the
// text was readable but matched no field.
var ErrNoExtractableText = errors.New("no extractable text in document")

// Assembler runs a fixed rule table over normalized text and produces one
// complete ContractRecord. The rule table is read-only, so one Assembler
// is safe to share across concurrent requests.
type Assembler struct {
	rules []Rule
}

func NewAssembler() *Assembler {
	return &Assembler{rules: DefaultRules()}
}

// NewAssemblerWithRules builds an assembler over a custom rule table.
func NewAssemblerWithRules(rules []Rule) *Assembler {
	return &Assembler{rules: rules}
}

// FromText normalizes raw OCR output and assembles a record. Returns
// ErrNoExtractableText when normalization leaves nothing to scan.
func (a *Assembler) FromText(raw string) (*models.ContractRecord, error) {
	text := Normalize(raw)
	if text == "" {
		return nil, ErrNoExtractableText
	}
	return a.Assemble(text), nil
}

// Assemble runs every rule independently over the normalized text and
// builds the fixed-schema record. It always returns a complete record:
// text with no matches yields all nulls, which is itself a valid result.
func (a *Assembler) Assemble(text string) *models.ContractRecord {
	doc := NewDocument(text)
	rec := models.NewContractRecord()
	for _, r := range a.rules {
		v, ok := r.Apply(doc)
		if !ok {
			continue
		}
		setField(rec, r.Field, v)
	}
	rec.AddOns = parseAddOns(doc)
	downgradeInvalid(rec)
	return rec
}

// setField converts a rule's string value into the record's typed field.
// Values that fail their field's type constraint are dropped, leaving the
// field null.
func setField(rec *models.ContractRecord, field, v string) {
	switch field {
	case FieldCustomerName:
		rec.CustomerName = &v
	case FieldPhone:
		rec.Phone = &v
	case FieldAddress:
		rec.Address = &v
	case FieldDeviceModel:
		rec.DeviceModel = &v
	case FieldIMEI:
		rec.IMEI = &v
	case FieldSerialNumber:
		rec.SerialNumber = &v
	case FieldSIMNumber:
		rec.SIMNumber = &v
	case FieldPlanName:
		rec.PlanName = &v
	case FieldPlanCharge:
		if d, err := decimal.NewFromString(v); err == nil {
			rec.PlanCharge = &d
		}
	case FieldMinimumMonthlyPlan:
		if d, err := decimal.NewFromString(v); err == nil {
			rec.MinimumMonthlyPlan = &d
		}
	case FieldDownPayment:
		if d, err := decimal.NewFromString(v); err == nil {
			rec.DownPayment = &d
		}
	case FieldContractDate:
		if d, err := models.ParseDate(v); err == nil {
			rec.ContractDate = d
		}
	case FieldContractEndDate:
		if d, err := models.ParseDate(v); err == nil {
			rec.ContractEndDate = d
		}
	case FieldOrderNumber:
		rec.OrderNumber = &v
	case FieldActivity:
		rec.Activity = &v
	}
}

var addOnCharge = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d{1,2})?)\s*$`)

// parseAddOns reads the add-ons section line by line. Each entry is a name
// with an optional trailing monthly amount; lines without an amount keep a
// zero charge.
func parseAddOns(doc *Document) []models.AddOn {
	section, ok := doc.Section(SectionAddOns)
	if !ok {
		return []models.AddOn{}
	}
	addons := []models.AddOn{}
	for _, ln := range strings.Split(section, "\n") {
		ln = strings.Trim(ln, "•*- \t")
		if ln == "" || planHeaderLine.MatchString(ln) {
			continue
		}
		name := ln
		charge := decimal.Zero
		if m := addOnCharge.FindStringSubmatchIndex(ln); m != nil {
			amt := strings.ReplaceAll(ln[m[2]:m[3]], ",", "")
			if d, err := decimal.NewFromString(amt); err == nil {
				charge = d
				name = strings.TrimRight(ln[:m[0]], "- \t")
			}
		}
		name = collapseSpaces(name)
		if name == "" {
			continue
		}
		addons = append(addons, models.AddOn{Name: name, MonthlyCharge: charge})
	}
	return addons
}
