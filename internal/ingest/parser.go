// Package ingest turns uploaded bytes into normalized financial records.
//
// Parsing dispatches on the declared file extension only; the content is
// never sniffed. Each parser returns either every row of the input or a
// single terminal error.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
)

// Declared extensions understood by Parse.
const (
	ExtCSV  = "csv"
	ExtXLSX = "xlsx"
	ExtXLS  = "xls"
	ExtJSON = "json"
)

// ExtensionOf returns the lowercased extension of a filename without the dot.
func ExtensionOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// SourceTypeFor maps a declared extension to the provenance tag of the
// records it produces.
func SourceTypeFor(ext string) (domain.SourceType, error) {
	switch normalizeExt(ext) {
	case ExtCSV:
		return domain.SourceCSV, nil
	case ExtXLSX, ExtXLS:
		return domain.SourceExcel, nil
	case ExtJSON:
		return domain.SourceJSON, nil
	default:
		return "", &domain.ErrUnsupportedFormat{Format: ext}
	}
}

// Parse decodes data according to the declared extension.
func Parse(data []byte, ext string) ([]domain.RawRow, error) {
	switch normalizeExt(ext) {
	case ExtCSV:
		return parseDelimited(data)
	case ExtXLSX, ExtXLS:
		return parseWorkbook(data)
	case ExtJSON:
		return parseJSONArray(data)
	default:
		return nil, &domain.ErrUnsupportedFormat{Format: ext}
	}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
