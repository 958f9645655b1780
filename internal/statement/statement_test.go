package statement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := "\xef\xbb\xbfDate, Description ,Amount\n" +
		"2024-01-01,COFFEE SHOP,-150.00\n" +
		"\n" +
		"2024-01-02,\"UBER, TRIP\",-40\n" +
		"2024-01-03,SALARY\n"

	tbl, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Description", "Amount"}, tbl.Header)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"2024-01-02", "UBER, TRIP", "-40"}, tbl.Rows[1])
	assert.Equal(t, []string{"2024-01-03", "SALARY", ""}, tbl.Rows[2], "short rows are padded")
}

func TestParseDelimiters(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"semicolon", "Date;Description;Amount\n01/02/2024;Shop;12,50\n"},
		{"tab", "Date\tDescription\tAmount\n01/02/2024\tShop\t12,50\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, []string{"Date", "Description", "Amount"}, tbl.Header)
			assert.Equal(t, [][]string{{"01/02/2024", "Shop", "12,50"}}, tbl.Rows)
		})
	}
}

func TestParseWideRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader("Date,Amount\n2024-01-01,5,extra\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount", "Column 3"}, tbl.Header)
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "Date,Description,Amount\n"} {
		_, err := Parse(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrEmpty, "input %q", in)
	}
}

func TestHeadAndText(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	for i := 1; i <= 8; i++ {
		b.WriteString("2024-01-0")
		b.WriteByte(byte('0' + i))
		b.WriteString(",Item,1\n")
	}
	tbl, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)

	head := tbl.Head(PreviewRows)
	assert.Equal(t, PreviewRows, head.Len())
	assert.Equal(t, 8, tbl.Len(), "Head does not modify the table")
	assert.Equal(t, tbl, tbl.Head(50))

	text := tbl.Text()
	assert.True(t, strings.HasPrefix(text, "Date,Description,Amount\n2024-01-01,Item,1\n"))
	assert.Equal(t, 9, strings.Count(text, "\n"))

	again, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, tbl, again)
}
