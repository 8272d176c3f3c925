package services

import (
	"fmt"

	"github.com/contractiq/contract-ocr-service/internal/models"
)

// ValidationError represents a coherence problem in an extracted record
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationWarning represents a suspicious but non-fatal finding
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating one ContractRecord.
// Findings never fail the request; they annotate the response.
type ValidationResult struct {
	Valid      bool                `json:"valid"`
	Errors     []ValidationError   `json:"errors"`
	Warnings   []ValidationWarning `json:"warnings"`
	Confidence float64             `json:"confidence"`
}

// ContractValidator checks field coherence of extracted contract records
// and scores extraction confidence.
type ContractValidator struct{}

func NewContractValidator() *ContractValidator {
	return &ContractValidator{}
}

// Validate runs all coherence checks against the record.
func (v *ContractValidator) Validate(rec *models.ContractRecord) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	if rec.IMEI != nil {
		n := len(*rec.IMEI)
		if n < 14 || n > 16 {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "imei",
				Message: fmt.Sprintf("unusual IMEI length %d, expected 14-16 digits", n),
			})
		} else if !luhnValid(*rec.IMEI) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "imei",
				Message: "IMEI failed checksum, possible OCR misread",
			})
		}
	}

	if rec.Phone != nil && len(*rec.Phone) != 10 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "phone",
			Message: fmt.Sprintf("phone has %d digits, expected 10", len(*rec.Phone)),
		})
	}

	if rec.SIMNumber != nil {
		n := len(*rec.SIMNumber)
		if n < 18 || n > 22 {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   "sim_number",
				Message: fmt.Sprintf("unusual SIM length %d, expected 18-22 digits", n),
			})
		}
	}

	if rec.ContractDate != nil && rec.ContractEndDate != nil &&
		rec.ContractEndDate.Before(rec.ContractDate.Time) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "contract_end_date",
			Message: "contract end date precedes the start date",
		})
	}

	if rec.PlanCharge != nil && rec.MinimumMonthlyPlan != nil &&
		rec.PlanCharge.GreaterThan(*rec.MinimumMonthlyPlan) {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "plan_charge",
			Message: "plan charge exceeds the minimum monthly charge for device and plan",
		})
	}

	result.Valid = len(result.Errors) == 0
	result.Confidence = v.confidence(rec)
	return result
}

// confidence scores how complete and coherent the extraction is. Critical
// identity fields weigh more than supporting ones; a checksum-valid IMEI
// and a coherent date range earn a bonus.
func (v *ContractValidator) confidence(rec *models.ContractRecord) float64 {
	score := 0.0

	// critical fields
	if rec.CustomerName != nil {
		score += 0.15
	}
	if rec.IMEI != nil {
		score += 0.15
	}
	if rec.PlanName != nil {
		score += 0.15
	}
	if rec.ContractDate != nil {
		score += 0.15
	}

	// supporting fields
	if rec.Phone != nil {
		score += 0.05
	}
	if rec.PlanCharge != nil {
		score += 0.05
	}
	if rec.OrderNumber != nil {
		score += 0.05
	}
	if rec.DeviceModel != nil {
		score += 0.05
	}

	// coherence bonuses
	if rec.IMEI != nil && len(*rec.IMEI) == 15 && luhnValid(*rec.IMEI) {
		score += 0.10
	}
	if rec.ContractDate != nil && rec.ContractEndDate != nil &&
		!rec.ContractEndDate.Before(rec.ContractDate.Time) {
		score += 0.10
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// luhnValid checks a digit string with the Luhn algorithm used by IMEIs.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
