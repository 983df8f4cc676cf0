package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseDelimited reads comma-separated text whose first row is the header.
func parseDelimited(data []byte) ([]domain.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1 // column counts are checked against the header below

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.RawRow{}, nil
		}
		return nil, &domain.ErrMalformedInput{Format: "CSV", Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([]domain.RawRow, 0)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &domain.ErrMalformedInput{Format: "CSV", Err: err}
		}

		if isBlankRecord(record) {
			continue
		}

		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &domain.ErrMalformedInput{
				Format: "CSV",
				Err:    fmt.Errorf("line %d: expected %d columns, got %d", line, len(header), len(record)),
			}
		}

		row := make(domain.RawRow, len(header))
		for i, name := range header {
			row[name] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// isBlankRecord reports whether a record came from a whitespace-only line.
func isBlankRecord(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
