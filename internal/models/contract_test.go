package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	require.NoError(t, err)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-15"`, string(out))

	var back Date
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, back.Equal(d.Time))
}

func TestParseDateRejectsNonCanonical(t *testing.T) {
	for _, s := range []string{"01/15/2024", "January 15, 2024", "2024-1-5", ""} {
		_, err := ParseDate(s)
		assert.Error(t, err, s)
	}
}

func TestNewDateDropsTimeOfDay(t *testing.T) {
	d := NewDate(time.Date(2024, 3, 12, 17, 45, 3, 0, time.Local))
	assert.Equal(t, "2024-03-12", d.String())
}

func TestRecordJSONAlwaysHasEveryField(t *testing.T) {
	out, err := json.Marshal(NewContractRecord())
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &m))

	keys := []string{
		"customer_name", "phone", "address",
		"device_model", "imei", "serial_number", "sim_number",
		"plan_name", "plan_charge", "minimum_monthly_plan", "down_payment",
		"contract_date", "contract_end_date",
		"order_number", "activity", "add_ons",
	}
	assert.Len(t, m, len(keys))
	for _, k := range keys {
		require.Contains(t, m, k)
		if k == "add_ons" {
			assert.Equal(t, "[]", string(m[k]))
		} else {
			assert.Equal(t, "null", string(m[k]))
		}
	}
}

func TestRecordMoneyMarshalsAsNumber(t *testing.T) {
	rec := NewContractRecord()
	charge := decimal.NewFromFloat(49.99)
	rec.PlanCharge = &charge
	rec.AddOns = []AddOn{{Name: "Device Protection", MonthlyCharge: decimal.NewFromFloat(12.50)}}

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"plan_charge":49.99`)
	assert.Contains(t, string(out), `"monthly_charge":12.5`)
}

func TestFillFromOnlyFillsMissing(t *testing.T) {
	name := "Jane Doe"
	phone := "5551234567"
	rec := NewContractRecord()
	rec.CustomerName = &name

	otherName := "Wrong Name"
	otherPhone := phone
	other := NewContractRecord()
	other.CustomerName = &otherName
	other.Phone = &otherPhone
	other.AddOns = []AddOn{{Name: "Roaming Pack", MonthlyCharge: decimal.Zero}}

	rec.FillFrom(other)

	assert.Equal(t, "Jane Doe", *rec.CustomerName)
	require.NotNil(t, rec.Phone)
	assert.Equal(t, phone, *rec.Phone)
	assert.Len(t, rec.AddOns, 1)
}

func TestFillFromNil(t *testing.T) {
	rec := NewContractRecord()
	rec.FillFrom(nil)
	assert.Nil(t, rec.CustomerName)
}
