package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"150", "150", true},
		{"150.0", "150", true},
		{" 2.50 ", "2.5", true},
		{"₹1,234.50", "1234.5", true},
		{"1,234", "1234", true},
		{"12,5", "12.5", true},
		{"1.234.567,89", "", false},
		{"1,234,567", "1234567", true},
		{"-150", "-150", true},
		{"₹-20", "-20", true},
		{"(75.25)", "-75.25", true},
		{"Rs. 99", "99", true},
		{"150 INR", "150", true},
		{"$12.99", "12.99", true},
		{"1,23,456", "123456", true},
		{".99", "0.99", true},
		{"450 (2 items)", "", false},
		{"Rs 120 x 3", "", false},
		{"12e3", "", false},
		{"approx 99 - 5% off", "", false},
		{"10-20", "", false},
		{"--5", "", false},
		{"(-5)", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "%q", tc.in)
			continue
		}
		require.NoError(t, err, "%q", tc.in)
		assert.True(t, decimal.RequireFromString(tc.out).Equal(got), "%q: got %s want %s", tc.in, got, tc.out)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹1,234.50", FormatAmount(decimal.RequireFromString("1234.5"), "INR"))
	assert.Equal(t, "$0.99", FormatAmount(decimal.RequireFromString("0.985"), "USD"))
	assert.Equal(t, "₹10.00", FormatAmount(decimal.NewFromInt(10), "not-a-currency"))
}

func TestSummarize(t *testing.T) {
	records := []Expense{
		{Date: NewDate(2024, 1, 1), Category: "Food", Amount: decimal.RequireFromString("150")},
		{Date: NewDate(2024, 1, 2), Category: "Travel", Amount: decimal.RequireFromString("1200.50")},
		{Date: NewDate(2024, 1, 3), Category: "Food", Amount: decimal.RequireFromString("49.50")},
		{Date: NewDate(2024, 1, 4), Category: "", Amount: decimal.RequireFromString("10")},
	}
	ov := Summarize(records)

	assert.Equal(t, len(records), ov.Count)
	require.Len(t, ov.ByCategory, 3)
	assert.Equal(t, "Food", ov.ByCategory[0].Name)
	assert.True(t, decimal.NewFromInt(200).Equal(ov.ByCategory[0].Amount))
	assert.Equal(t, UncategorizedLabel, ov.ByCategory[2].Name)

	sum := decimal.Zero
	for _, c := range ov.ByCategory {
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(ov.Total), "subtotals %s != total %s", sum, ov.Total)
	assert.True(t, decimal.RequireFromString("1200.50").Equal(ov.Max()))
}

func TestSummarizeEmpty(t *testing.T) {
	ov := Summarize(nil)
	assert.Equal(t, 0, ov.Count)
	assert.True(t, ov.Total.IsZero())
	assert.Empty(t, ov.ByCategory)
	assert.True(t, ov.Max().IsZero())
}
