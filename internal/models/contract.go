package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary fields are numbers in the response schema, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Date is a calendar day serialized in canonical YYYY-MM-DD form.
type Date struct {
	time.Time
}

// NewDate wraps t, dropping the time-of-day component.
func NewDate(t time.Time) *Date {
	d := Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
	return &d
}

// ParseDate parses a canonical YYYY-MM-DD string.
func ParseDate(s string) (*Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Value implements driver.Valuer so Date binds as a SQL date.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		d.Time = v
		return nil
	case string:
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", v, err)
		}
		d.Time = t
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// AddOn is a rate-plan add-on line from the contract.
type AddOn struct {
	Name          string          `json:"name"`
	MonthlyCharge decimal.Decimal `json:"monthly_charge"`
}

// ContractRecord is the fixed-schema output of one extraction pass.
// Every field is always present in the JSON output; fields the rules could
// not extract are null. The record is immutable once assembled.
type ContractRecord struct {
	CustomerName *string `json:"customer_name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`

	DeviceModel  *string `json:"device_model"`
	IMEI         *string `json:"imei"`
	SerialNumber *string `json:"serial_number"`
	SIMNumber    *string `json:"sim_number"`

	PlanName           *string          `json:"plan_name"`
	PlanCharge         *decimal.Decimal `json:"plan_charge"`
	MinimumMonthlyPlan *decimal.Decimal `json:"minimum_monthly_plan"`
	DownPayment        *decimal.Decimal `json:"down_payment"`

	ContractDate    *Date `json:"contract_date"`
	ContractEndDate *Date `json:"contract_end_date"`

	OrderNumber *string `json:"order_number"`
	Activity    *string `json:"activity"`

	AddOns []AddOn `json:"add_ons"`
}

// NewContractRecord returns an all-null record, which is itself a valid
// extraction result ("no extractable fields").
func NewContractRecord() *ContractRecord {
	return &ContractRecord{AddOns: []AddOn{}}
}

// FillFrom copies into r every scalar field that r is missing and other has.
// Used to merge a fallback extraction under the primary rule-based one.
func (r *ContractRecord) FillFrom(other *ContractRecord) {
	if other == nil {
		return
	}
	if r.CustomerName == nil {
		r.CustomerName = other.CustomerName
	}
	if r.Phone == nil {
		r.Phone = other.Phone
	}
	if r.Address == nil {
		r.Address = other.Address
	}
	if r.DeviceModel == nil {
		r.DeviceModel = other.DeviceModel
	}
	if r.IMEI == nil {
		r.IMEI = other.IMEI
	}
	if r.SerialNumber == nil {
		r.SerialNumber = other.SerialNumber
	}
	if r.SIMNumber == nil {
		r.SIMNumber = other.SIMNumber
	}
	if r.PlanName == nil {
		r.PlanName = other.PlanName
	}
	if r.PlanCharge == nil {
		r.PlanCharge = other.PlanCharge
	}
	if r.MinimumMonthlyPlan == nil {
		r.MinimumMonthlyPlan = other.MinimumMonthlyPlan
	}
	if r.DownPayment == nil {
		r.DownPayment = other.DownPayment
	}
	if r.ContractDate == nil {
		r.ContractDate = other.ContractDate
	}
	if r.ContractEndDate == nil {
		r.ContractEndDate = other.ContractEndDate
	}
	if r.OrderNumber == nil {
		r.OrderNumber = other.OrderNumber
	}
	if r.Activity == nil {
		r.Activity = other.Activity
	}
	if len(r.AddOns) == 0 && len(other.AddOns) > 0 {
		r.AddOns = other.AddOns
	}
}

// ExtractResponse is the body returned by the extraction endpoint.
type ExtractResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Extraction *ContractRecord `json:"extraction"`

	// Processing metadata
	OCRDuration     float64 `json:"ocrDuration,omitempty"`     // rasterize+OCR time in seconds
	ExtractDuration float64 `json:"extractDuration,omitempty"` // rule engine time in seconds
	TotalDuration   float64 `json:"totalDuration"`             // total processing time
}

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// PDF rasterization config
	PDF PDFConfig `yaml:"pdf"`

	// Extraction config
	Extraction ExtractionConfig `yaml:"extraction"`

	// AI fallback config
	AI AIConfig `yaml:"ai"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Language    string `yaml:"language"`      // OCR language (default: "eng")
	PageSegMode int    `yaml:"page_seg_mode"` // tesseract --psm (default: 6)
}

// PDFConfig represents PDF rasterization configuration
type PDFConfig struct {
	DPI int `yaml:"dpi"` // render resolution (default: 300)
}

// ExtractionConfig controls the rule engine and its AI fallback
type ExtractionConfig struct {
	AIFallback          bool    `yaml:"ai_fallback"`          // re-extract via AI when confidence is low
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // below this, the fallback kicks in
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai" or "gemini"
}

// OpenAIConfig for OpenAI and OpenAI-compatible endpoints
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}
