package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/contractiq/contract-ocr-service/internal/extract"
	"github.com/contractiq/contract-ocr-service/internal/models"
)

// Extractor re-reads OCR text through an AI provider. It is used as a
// fallback when the rule-based extraction scores below the configured
// confidence threshold; only fields the rules left null get merged in.
type Extractor struct {
	provider Provider
}

func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract asks the provider for the contract fields and parses its JSON
// answer into a record.
func (e *Extractor) Extract(ctx context.Context, ocrText string) (*models.ContractRecord, error) {
	response, err := e.provider.ExtractData(ctx, buildPrompt(ocrText))
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}
	rec, err := parseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parsing ai response: %w", err)
	}
	return rec, nil
}

func buildPrompt(ocrText string) string {
	return `Extract the following fields from this mobile phone contract text.
Respond with a single JSON object and nothing else. Use null for any field
not present in the text.

Fields:
- customer_name: the customer or company name
- phone: customer phone number, digits only
- address: full customer address on one line
- device_model: the device model
- imei: device IMEI, digits only
- serial_number: device serial number
- sim_number: SIM/ICCID number, digits only
- plan_name: the rate plan name, without amounts
- plan_charge: monthly plan charge as a number
- minimum_monthly_plan: minimum monthly charge for device and rate plan as a number
- down_payment: down payment as a number
- contract_date: contract start date as YYYY-MM-DD
- contract_end_date: contract end date as YYYY-MM-DD
- order_number: the order number
- activity: the activity type (e.g. "New Activation")
- add_ons: array of {"name": string, "monthly_charge": number}

Contract text:
` + ocrText
}

var digitsRe = regexp.MustCompile(`\D+`)

// parseResponse decodes the provider's JSON answer, tolerating markdown
// fences and amounts returned as strings.
func parseResponse(response string) (*models.ContractRecord, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var raw struct {
		CustomerName       string      `json:"customer_name"`
		Phone              string      `json:"phone"`
		Address            string      `json:"address"`
		DeviceModel        string      `json:"device_model"`
		IMEI               string      `json:"imei"`
		SerialNumber       string      `json:"serial_number"`
		SIMNumber          string      `json:"sim_number"`
		PlanName           string      `json:"plan_name"`
		PlanCharge         interface{} `json:"plan_charge"`
		MinimumMonthlyPlan interface{} `json:"minimum_monthly_plan"`
		DownPayment        interface{} `json:"down_payment"`
		ContractDate       string      `json:"contract_date"`
		ContractEndDate    string      `json:"contract_end_date"`
		OrderNumber        string      `json:"order_number"`
		Activity           string      `json:"activity"`
		AddOns             []struct {
			Name          string      `json:"name"`
			MonthlyCharge interface{} `json:"monthly_charge"`
		} `json:"add_ons"`
	}

	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("json parse error: %w", err)
	}

	rec := models.NewContractRecord()
	rec.CustomerName = strVal(raw.CustomerName)
	rec.Phone = strVal(digitsRe.ReplaceAllString(raw.Phone, ""))
	rec.Address = strVal(raw.Address)
	rec.DeviceModel = strVal(raw.DeviceModel)
	rec.IMEI = strVal(digitsRe.ReplaceAllString(raw.IMEI, ""))
	rec.SerialNumber = strVal(raw.SerialNumber)
	rec.SIMNumber = strVal(digitsRe.ReplaceAllString(raw.SIMNumber, ""))
	rec.PlanName = strVal(raw.PlanName)
	rec.PlanCharge = parseAmount(raw.PlanCharge)
	rec.MinimumMonthlyPlan = parseAmount(raw.MinimumMonthlyPlan)
	rec.DownPayment = parseAmount(raw.DownPayment)
	rec.ContractDate = parseDate(raw.ContractDate)
	rec.ContractEndDate = parseDate(raw.ContractEndDate)
	rec.OrderNumber = strVal(raw.OrderNumber)
	rec.Activity = strVal(raw.Activity)

	for _, a := range raw.AddOns {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		charge := decimal.Zero
		if d := parseAmount(a.MonthlyCharge); d != nil {
			charge = *d
		}
		rec.AddOns = append(rec.AddOns, models.AddOn{Name: name, MonthlyCharge: charge})
	}
	return rec, nil
}

func strVal(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseAmount handles amounts returned as numbers or as strings with
// currency noise ("$1,234.50").
func parseAmount(v interface{}) *decimal.Decimal {
	switch val := v.(type) {
	case float64:
		d := decimal.NewFromFloat(val)
		return &d
	case string:
		s := strings.TrimSpace(val)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return &d
		}
	}
	return nil
}

func parseDate(s string) *models.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, ok := extract.CanonicalDate(s)
	if !ok {
		return nil
	}
	return models.NewDate(t)
}
