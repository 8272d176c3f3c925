package extract

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractiq/contract-ocr-service/internal/models"
)

const sampleText = "Customer: Jane Doe\n" +
	"Phone: (555) 123-4567\n" +
	"IMEI: 359201123456789\n" +
	"Plan: Gold Unlimited  $49.99\n" +
	"Order #: A-00231\n" +
	"Contract Date: 01/15/2024"

func TestAssembleSample(t *testing.T) {
	rec := NewAssembler().Assemble(sampleText)

	require.NotNil(t, rec.CustomerName)
	assert.Equal(t, "Jane Doe", *rec.CustomerName)

	require.NotNil(t, rec.Phone)
	assert.Equal(t, "5551234567", *rec.Phone)

	require.NotNil(t, rec.IMEI)
	assert.Equal(t, "359201123456789", *rec.IMEI)

	require.NotNil(t, rec.PlanName)
	assert.Equal(t, "Gold Unlimited", *rec.PlanName)

	require.NotNil(t, rec.PlanCharge)
	assert.True(t, rec.PlanCharge.Equal(decimal.RequireFromString("49.99")))

	require.NotNil(t, rec.OrderNumber)
	assert.Equal(t, "A-00231", *rec.OrderNumber)

	require.NotNil(t, rec.ContractDate)
	assert.Equal(t, "2024-01-15", rec.ContractDate.String())

	assert.Nil(t, rec.Address)
	assert.Nil(t, rec.SIMNumber)
}

func TestAssembleEmptyTextIsAllNull(t *testing.T) {
	rec := NewAssembler().Assemble("")

	assert.Nil(t, rec.CustomerName)
	assert.Nil(t, rec.Phone)
	assert.Nil(t, rec.Address)
	assert.Nil(t, rec.DeviceModel)
	assert.Nil(t, rec.IMEI)
	assert.Nil(t, rec.SerialNumber)
	assert.Nil(t, rec.SIMNumber)
	assert.Nil(t, rec.PlanName)
	assert.Nil(t, rec.PlanCharge)
	assert.Nil(t, rec.MinimumMonthlyPlan)
	assert.Nil(t, rec.DownPayment)
	assert.Nil(t, rec.ContractDate)
	assert.Nil(t, rec.ContractEndDate)
	assert.Nil(t, rec.OrderNumber)
	assert.Nil(t, rec.Activity)
	assert.Empty(t, rec.AddOns)
}

// Every schema key is present in the serialized record, matched or not.
func TestRecordJSONIsTotal(t *testing.T) {
	raw, err := json.Marshal(NewAssembler().Assemble("nothing useful here"))
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))

	keys := []string{
		"customer_name", "phone", "address", "device_model", "imei",
		"serial_number", "sim_number", "plan_name", "plan_charge",
		"minimum_monthly_plan", "down_payment", "contract_date",
		"contract_end_date", "order_number", "activity", "add_ons",
	}
	assert.Len(t, m, len(keys))
	for _, k := range keys {
		assert.Contains(t, m, k)
	}
}

// Disabling rules never changes what the remaining rules extract.
func TestRuleIndependence(t *testing.T) {
	full := NewAssembler().Assemble(sampleText)

	var subset []Rule
	for _, r := range DefaultRules() {
		if r.Field == FieldIMEI || r.Field == FieldPhone {
			subset = append(subset, r)
		}
	}
	partial := NewAssemblerWithRules(subset).Assemble(sampleText)

	assert.Equal(t, full.IMEI, partial.IMEI)
	assert.Equal(t, full.Phone, partial.Phone)
}

func TestAssembleIdempotent(t *testing.T) {
	a := NewAssembler()
	first := a.Assemble(sampleText)
	second := a.Assemble(sampleText)
	assert.Equal(t, first, second)
}

func TestAssembleFullContract(t *testing.T) {
	text := "CRITICAL INFORMATION SUMMARY\n" +
		"Order Number: 151687471 Store: Downtown West\n" +
		"Store Phone Number: (800) 111-2222\n" +
		"Activity: New Activation Store: Downtown West\n" +
		"YOUR INFORMATION:\n" +
		"Customer Name: Acme Corp\n" +
		"Address: 123 Main St\n" +
		"Apt 4\n" +
		"Phone Number: (780) 617-4431\n" +
		"YOUR DEVICE DETAILS:\n" +
		"Model: Pixel 9 Pro Early Cancellation Fee(s): $300.00\n" +
		"IMEI/ESN/MEID: 359201123456789\n" +
		"SIM Number: 89302720523012345678\n" +
		"Commitment Period: 24 months Start Date: November 19, 2025 End Date: November 18, 2027\n" +
		"YOUR RATE PLAN DETAILS:\n" +
		"Plan: SmartPay Tab 20GB Monthly Rate Plan Charge: $20.00\n" +
		"YOUR RATE PLAN ADD-ONS:\n" +
		"Voicemail Plus $5.00\n" +
		"International Texting\n" +
		"TOTAL MONTHLY CHARGE: $25.00"

	rec := NewAssembler().Assemble(text)

	require.NotNil(t, rec.CustomerName)
	assert.Equal(t, "Acme Corp", *rec.CustomerName)

	require.NotNil(t, rec.Phone)
	assert.Equal(t, "7806174431", *rec.Phone, "store phone must not bleed into customer phone")

	require.NotNil(t, rec.Address)
	assert.Equal(t, "123 Main St Apt 4", *rec.Address)

	require.NotNil(t, rec.DeviceModel)
	assert.Equal(t, "Pixel 9 Pro", *rec.DeviceModel)

	require.NotNil(t, rec.IMEI)
	assert.Equal(t, "359201123456789", *rec.IMEI)

	require.NotNil(t, rec.SIMNumber)
	assert.Equal(t, "89302720523012345678", *rec.SIMNumber)

	require.NotNil(t, rec.PlanName)
	assert.Equal(t, "SmartPay Tab 20GB", *rec.PlanName)

	require.NotNil(t, rec.PlanCharge)
	assert.True(t, rec.PlanCharge.Equal(decimal.RequireFromString("20.00")))

	require.NotNil(t, rec.ContractDate)
	assert.Equal(t, "2025-11-19", rec.ContractDate.String())

	require.NotNil(t, rec.ContractEndDate)
	assert.Equal(t, "2027-11-18", rec.ContractEndDate.String())

	require.NotNil(t, rec.OrderNumber)
	assert.Equal(t, "151687471", *rec.OrderNumber)

	require.NotNil(t, rec.Activity)
	assert.Equal(t, "New Activation", *rec.Activity)

	require.Len(t, rec.AddOns, 2)
	assert.Equal(t, "Voicemail Plus", rec.AddOns[0].Name)
	assert.True(t, rec.AddOns[0].MonthlyCharge.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, "International Texting", rec.AddOns[1].Name)
	assert.True(t, rec.AddOns[1].MonthlyCharge.IsZero())
}

func TestFromText(t *testing.T) {
	a := NewAssembler()

	rec, err := a.FromText(sampleText + "\n")
	require.NoError(t, err)
	assert.NotNil(t, rec.CustomerName)

	_, err = a.FromText("   \n\t  ")
	assert.ErrorIs(t, err, ErrNoExtractableText)
}

// A value that slipped past its rule but violates the output schema is
// downgraded to null instead of failing the record.
func TestDowngradeInvalid(t *testing.T) {
	rec := models.NewContractRecord()
	name := "Jane Doe"
	badPhone := "12345"
	rec.CustomerName = &name
	rec.Phone = &badPhone

	downgradeInvalid(rec)

	assert.Nil(t, rec.Phone)
	require.NotNil(t, rec.CustomerName)
	assert.Equal(t, "Jane Doe", *rec.CustomerName)
}
