package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleByField(t *testing.T, field string) Rule {
	t.Helper()
	for _, r := range DefaultRules() {
		if r.Field == field {
			return r
		}
	}
	t.Fatalf("no rule for field %s", field)
	return Rule{}
}

// A label-adjacent value wins over a format-matching value elsewhere in the
// text, even when the unlabeled one appears first.
func TestLabelAnchoredBeatsFormatAnchored(t *testing.T) {
	doc := NewDocument("Call 800 555 1234 for support\nPhone: (780) 617-4431")

	v, ok := ruleByField(t, FieldPhone).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "7806174431", v)
}

// When no label survived OCR, the format-anchored fallback still finds a
// phone-shaped value.
func TestFormatAnchoredFallback(t *testing.T) {
	doc := NewDocument("reach us at (780) 617-4431 during business hours")

	v, ok := ruleByField(t, FieldPhone).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "7806174431", v)
}

// A bare digit blob must not be mistaken for a phone number.
func TestPhoneShapeRequiresBoundaries(t *testing.T) {
	doc := NewDocument("ref 359201123456789 on file")

	_, ok := ruleByField(t, FieldPhone).Apply(doc)
	assert.False(t, ok)
}

func TestCustomerNameLabelPriority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "customer name label",
			text: "Customer Name: Acme Corp\nAccount Number: 991",
			want: "Acme Corp",
		},
		{
			name: "company name when no customer name",
			text: "Company Name: Initech Ltd",
			want: "Initech Ltd",
		},
		{
			name: "account number as last resort",
			text: "Account Number: 778812",
			want: "778812",
		},
		{
			name: "merged trailing label is cut",
			text: "Customer Name: Jane Doe Phone Number: (780) 617-4431",
			want: "Jane Doe",
		},
		{
			name: "bare customer label",
			text: "Customer: Jane Doe",
			want: "Jane Doe",
		},
	}

	rule := ruleByField(t, FieldCustomerName)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := rule.Apply(NewDocument(tt.text))
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

// Section scoping keeps the store's phone from bleeding into the customer
// phone field.
func TestPhoneScopedToInformationSection(t *testing.T) {
	text := "Store Phone Number: (800) 111-2222\n" +
		"YOUR INFORMATION:\n" +
		"Customer Name: Jane Doe\n" +
		"Phone Number: (780) 617-4431\n" +
		"YOUR DEVICE DETAILS:\n" +
		"IMEI: 359201123456789"

	v, ok := ruleByField(t, FieldPhone).Apply(NewDocument(text))
	require.True(t, ok)
	assert.Equal(t, "7806174431", v)
}

func TestValueOnNextLine(t *testing.T) {
	doc := NewDocument("Order Number:\n151687471")

	v, ok := ruleByField(t, FieldOrderNumber).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "151687471", v)
}

func TestOrderNumberCutsMergedStore(t *testing.T) {
	doc := NewDocument("Order Number: 151687471 Store: Downtown West")

	v, ok := ruleByField(t, FieldOrderNumber).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "151687471", v)
}

func TestPlanNameVariants(t *testing.T) {
	rule := ruleByField(t, FieldPlanName)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "charge label cut from plan line",
			text: "Plan: SmartPay Tab 20GB Monthly Rate Plan Charge: $20.00",
			want: "SmartPay Tab 20GB",
		},
		{
			name: "minimum charge header style",
			text: "Plan: EPP BYOD 60GB Lite Minimum Monthly Charge: $85.00",
			want: "EPP BYOD 60GB Lite",
		},
		{
			name: "trailing amount stripped",
			text: "Plan: Gold Unlimited $49.99",
			want: "Gold Unlimited",
		},
		{
			name: "descriptive bullet fallback in rate section",
			text: "YOUR RATE PLAN DETAILS:\n• Freedom 40GB 5G Data\nTOTAL MONTHLY CHARGE: $45.00",
			want: "Freedom 40GB 5G Data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := rule.Apply(NewDocument(tt.text))
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestPlanChargeVariants(t *testing.T) {
	rule := ruleByField(t, FieldPlanCharge)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "monthly rate plan charge",
			text: "Plan: SmartPay Tab 20GB Monthly Rate Plan Charge: $20.00",
			want: "20.00",
		},
		{
			name: "minimum monthly charge",
			text: "Plan: EPP BYOD 60GB Lite Minimum Monthly Charge: $85.00",
			want: "85.00",
		},
		{
			name: "amount on plan line without charge label",
			text: "Plan: Gold Unlimited $49.99",
			want: "49.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := rule.Apply(NewDocument(tt.text))
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDeviceModelCutsMergedLabels(t *testing.T) {
	text := "YOUR DEVICE DETAILS:\n" +
		"Model: Pixel 9 Pro Early Cancellation Fee(s): $300.00\n" +
		"IMEI/ESN/MEID: 359201123456789"

	doc := NewDocument(text)

	v, ok := ruleByField(t, FieldDeviceModel).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "Pixel 9 Pro", v)

	v, ok = ruleByField(t, FieldIMEI).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "359201123456789", v)
}

func TestContractDatePrefersDeviceSection(t *testing.T) {
	text := "Start Date: January 5, 2020\n" +
		"YOUR DEVICE DETAILS:\n" +
		"Commitment Period: 24 months Start Date: November 19, 2025 End Date: November 18, 2027"

	doc := NewDocument(text)

	v, ok := ruleByField(t, FieldContractDate).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "2025-11-19", v)

	v, ok = ruleByField(t, FieldContractEndDate).Apply(doc)
	require.True(t, ok)
	assert.Equal(t, "2027-11-18", v)
}

func TestAddressBlockStopsAtNextLabel(t *testing.T) {
	text := "YOUR INFORMATION:\n" +
		"Address: 123 Main St\n" +
		"Apt 4\n" +
		"Phone Number: (780) 617-4431"

	v, ok := ruleByField(t, FieldAddress).Apply(NewDocument(text))
	require.True(t, ok)
	assert.Equal(t, "123 Main St Apt 4", v)
}

// A transform failure downgrades the match instead of erroring.
func TestUnparseableDateIsNoMatch(t *testing.T) {
	doc := NewDocument("Contract Date: soon")

	_, ok := ruleByField(t, FieldContractDate).Apply(doc)
	assert.False(t, ok)
}
