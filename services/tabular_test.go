package services

import (
	"testing"

	"csv-rag-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseTable_CSV(t *testing.T) {
	table, err := ParseTable([]byte("name,age,city\nAda,36,London\nBob,,Paris\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, Row{"Ada", "36", "London"}, table.Rows[0])
	assert.Equal(t, Row{"Bob", nil, "Paris"}, table.Rows[1])
}

func TestParseTable_CSVStripsBOMAndHandlesQuotes(t *testing.T) {
	table, err := ParseTable([]byte("\xEF\xBB\xBFname,notes\n\"Ada\",\"likes a, b\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "notes"}, table.Header)
	assert.Equal(t, Row{"Ada", "likes a, b"}, table.Rows[0])
}

func TestParseTable_CSVShortRowsArePadded(t *testing.T) {
	table, err := ParseTable([]byte("name,age,city\nAda,36,London\nBob,41\n"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, Row{"Bob", "41", nil}, table.Rows[1])

	table, err = ParseTable([]byte("a,b,c\nx,y\n"))
	require.NoError(t, err)
	assert.Equal(t, Row{"x", "y", nil}, table.Rows[0])
	assert.Equal(t, "x | y | ", RowText(table.Rows[0]))
}

func TestParseTable_WhitespaceOnlyIsUnsupported(t *testing.T) {
	_, err := ParseTable([]byte("   \n\n "))
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestParseTable_HeaderOnly(t *testing.T) {
	table, err := ParseTable([]byte("name,age\n"))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Equal(t, 2, table.Columns())
}

func TestParseTable_XLSX(t *testing.T) {
	data := buildWorkbook(t,
		[]any{"name", "age", "city"},
		[]any{"Ada", 36, "London"},
		[]any{"Bob"},
		[]any{"Cy", nil, "Rome"},
	)

	table, err := ParseTable(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, table.Header)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, Row{"Ada", "36", "London"}, table.Rows[0])
	assert.Equal(t, Row{"Bob", nil, nil}, table.Rows[1])
	assert.Equal(t, Row{"Cy", nil, "Rome"}, table.Rows[2])
}

func TestParseTable_Unsupported(t *testing.T) {
	_, err := ParseTable([]byte{0xff, 0xfe, 0x00, 0x01})
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)

	// a row wider than the header falls through to the spreadsheet path,
	// which also fails
	_, err = ParseTable([]byte("a,b\n1,2,3\n"))
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}
