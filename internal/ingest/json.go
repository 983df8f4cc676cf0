package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
)

// parseJSONArray decodes a top-level array of objects. Numbers are kept as
// json.Number so the normalizer sees the exact literal.
func parseJSONArray(data []byte) ([]domain.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &domain.ErrMalformedInput{Format: "JSON", Err: errors.New("top level must be an array of objects")}
		}
		return nil, &domain.ErrMalformedInput{Format: "JSON", Err: err}
	}
	if items == nil {
		// literal null
		return nil, &domain.ErrMalformedInput{Format: "JSON", Err: errors.New("top level must be an array of objects")}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &domain.ErrMalformedInput{Format: "JSON", Err: errors.New("unexpected data after top-level array")}
	}

	rows := make([]domain.RawRow, 0, len(items))
	for i, item := range items {
		itemDec := json.NewDecoder(bytes.NewReader(item))
		itemDec.UseNumber()

		var row domain.RawRow
		if err := itemDec.Decode(&row); err != nil || row == nil {
			return nil, &domain.ErrMalformedInput{Format: "JSON", Err: fmt.Errorf("element %d is not an object", i)}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
