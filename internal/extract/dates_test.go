package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"textual month", "March 12, 2024", "2024-03-12", true},
		{"abbreviated month", "Mar 12, 2024", "2024-03-12", true},
		{"iso", "2024-03-12", "2024-03-12", true},
		{"day month year", "12/03/2024", "2024-03-12", true},
		{"month day year when day slot impossible", "01/15/2024", "2024-01-15", true},
		{"trailing separators stripped", "November 19, 2025;", "2025-11-19", true},
		{"extra internal spacing", "November  19,  2025", "2025-11-19", true},
		{"garbage", "not a date", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

// Three renderings of the same calendar day must canonicalize identically.
func TestCanonicalDateAgreement(t *testing.T) {
	forms := []string{"12/03/2024", "March 12, 2024", "2024-03-12"}
	for _, f := range forms {
		got, ok := CanonicalDate(f)
		require.True(t, ok, f)
		assert.Equal(t, "2024-03-12", got.Format("2006-01-02"), f)
	}
}

func TestTransformMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$20.00", "20.00", true},
		{"$ 1,234.50", "1234.50", true},
		{"85", "85", true},
		{"49.99", "49.99", true},
		{"no amount here", "", false},
	}
	for _, tt := range tests {
		got, ok := transformMoney(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDigitRun(t *testing.T) {
	imei := digitRun(10, 20)

	got, ok := imei("35-9201-123456-7")
	assert.True(t, ok)
	assert.Equal(t, "3592011234567", got)

	got, ok = imei("359201123456789")
	assert.True(t, ok)
	assert.Equal(t, "359201123456789", got)

	_, ok = imei("12345")
	assert.False(t, ok)

	sim := digitRun(18, 22)
	got, ok = sim("8930 2720 5230 1234 5678")
	assert.True(t, ok)
	assert.Equal(t, "89302720523012345678", got)
}

func TestTransformPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(780) 617-4431", "7806174431", true},
		{"780-617-4431", "7806174431", true},
		{"780 617 4431", "7806174431", true},
		{"+1 780 617 4431", "7806174431", true},
		{"(555) 123-4567", "5551234567", true},
		{"ext. 42", "", false},
	}
	for _, tt := range tests {
		got, ok := transformPhone(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
