package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is returned when the active sheet has no header row.
var ErrNoHeader = errors.New("sheet has no header row")

// ParseWorkbook reads the active sheet of an .xlsx workbook.
// The first row names the columns; every following non-empty row becomes a Record.
func ParseWorkbook(data []byte) (*domain.Snapshot, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return FromRows(rows)
}

// FromRows builds a snapshot from a header row followed by data rows.
// Short rows are padded, long rows truncated to the header width.
func FromRows(rows [][]string) (*domain.Snapshot, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrNoHeader
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		columns[i] = h
	}

	snap := &domain.Snapshot{
		Columns: columns,
		Records: make([]domain.Record, 0, len(rows)-1),
	}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		values := make([]string, len(columns))
		copy(values, row)
		snap.Records = append(snap.Records, domain.Record{Columns: columns, Values: values})
	}
	return snap, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
