package ingest

import (
	"bytes"
	"errors"
	"strings"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"

	"github.com/xuri/excelize/v2"
)

// parseWorkbook reads the first sheet of a workbook; its first non-empty row
// is the header. Other sheets are ignored.
//
// Cells are read raw, so date cells come back as Excel serial numbers and
// are decoded later by the normalizer.
func parseWorkbook(data []byte) ([]domain.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ErrMalformedInput{Format: "Excel", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ErrMalformedInput{Format: "Excel", Err: errors.New("workbook has no sheets")}
	}

	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.ErrMalformedInput{Format: "Excel", Err: err}
	}

	rows := make([]domain.RawRow, 0)
	start := 0
	for start < len(grid) && isEmptyRow(grid[start]) {
		start++
	}
	if start == len(grid) {
		return rows, nil
	}

	header := make([]string, len(grid[start]))
	for i, h := range grid[start] {
		header[i] = strings.TrimSpace(h)
	}

	for _, cells := range grid[start+1:] {
		row := make(domain.RawRow, len(header))
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			v := strings.TrimSpace(cell)
			if v == "" {
				continue
			}
			row[header[i]] = v
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
