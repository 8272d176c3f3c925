package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/contractiq/contract-ocr-service/internal/models"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func datePtr(y int, m time.Month, d int) *models.Date {
	return models.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, luhnValid("490154203237518"))
	assert.False(t, luhnValid("490154203237519"))
	assert.False(t, luhnValid("49015420323751x"))
}

func TestValidateCoherentRecord(t *testing.T) {
	rec := models.NewContractRecord()
	rec.CustomerName = strPtr("Jane Doe")
	rec.Phone = strPtr("7806174431")
	rec.IMEI = strPtr("490154203237518")
	rec.PlanName = strPtr("Gold Unlimited")
	rec.PlanCharge = decPtr("49.99")
	rec.OrderNumber = strPtr("151687471")
	rec.DeviceModel = strPtr("Pixel 9 Pro")
	rec.ContractDate = datePtr(2025, time.November, 19)
	rec.ContractEndDate = datePtr(2027, time.November, 18)

	result := NewContractValidator().Validate(rec)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
}

func TestValidateDateOrder(t *testing.T) {
	rec := models.NewContractRecord()
	rec.ContractDate = datePtr(2027, time.November, 18)
	rec.ContractEndDate = datePtr(2025, time.November, 19)

	result := NewContractValidator().Validate(rec)

	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "contract_end_date", result.Errors[0].Field)
}

func TestValidatePhoneLength(t *testing.T) {
	rec := models.NewContractRecord()
	rec.Phone = strPtr("555123")

	result := NewContractValidator().Validate(rec)

	assert.False(t, result.Valid)
	assert.Equal(t, "phone", result.Errors[0].Field)
}

func TestValidateIMEIChecksumWarning(t *testing.T) {
	rec := models.NewContractRecord()
	rec.IMEI = strPtr("490154203237519")

	result := NewContractValidator().Validate(rec)

	assert.True(t, result.Valid, "warnings never invalidate the record")
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "imei", result.Warnings[0].Field)
}

func TestValidatePlanChargeVsMinimum(t *testing.T) {
	rec := models.NewContractRecord()
	rec.PlanCharge = decPtr("95.00")
	rec.MinimumMonthlyPlan = decPtr("85.00")

	result := NewContractValidator().Validate(rec)

	assert.True(t, result.Valid)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "plan_charge", result.Warnings[0].Field)
}

func TestConfidenceEmptyRecord(t *testing.T) {
	result := NewContractValidator().Validate(models.NewContractRecord())
	assert.Zero(t, result.Confidence)
}
