package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Workbook builds an .xlsx file in memory whose first sheet holds header followed by rows.
// It fails the test immediately on error.
func Workbook(t *testing.T, header []string, rows ...[]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell := fmt.Sprintf("A%d", i+1)
		require.NoError(t, f.SetSheetRow(sheet, cell, &cells), "Failed to write row %d", i+1)
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err, "Failed to serialize workbook")
	return buf.Bytes()
}

// SiteRows generates n rows matching the SiteHeader layout, all containing term in the Site column.
func SiteRows(term string, n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s%02d", term, i+1),
			fmt.Sprintf("10.0.%d.1", i),
			fmt.Sprintf("BTS-%d", i+1),
		}
	}
	return rows
}

// SiteHeader is a header resembling the production site sheet.
var SiteHeader = []string{"No", "Site", "IP", "BTS Name"}
