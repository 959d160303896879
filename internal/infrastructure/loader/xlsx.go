package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// loadXLSX reads the column from the first sheet.
func loadXLSX(path, column string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	idx, err := columnIndex(rows[0], column)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out, nil
}
