package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"

	"github.com/xuri/excelize/v2"
)

// manualTotalTolerance is how far a caller-supplied total may drift from
// quantity*price before the row is rejected.
const manualTotalTolerance = 0.01

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// NormalizeBatch normalizes every row before anything is persisted, so a
// single invalid row rejects the whole batch.
func NormalizeBatch(rows []domain.RawRow, ownerID string, prov domain.Provenance) ([]domain.FinancialRecord, error) {
	records := make([]domain.FinancialRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := Normalize(row, i, ownerID, prov)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize converts one raw row into a FinancialRecord. index is the
// zero-based position of the row in its batch and is reported on error.
//
// File-sourced rows always get total = quantity*price. Manual rows keep the
// supplied total, which must agree with quantity*price to the cent; when
// it is absent it is computed.
func Normalize(row domain.RawRow, index int, ownerID string, prov domain.Provenance) (domain.FinancialRecord, error) {
	fields := lowerKeys(row)

	date, err := coerceDate(fields["date"], prov.SourceType)
	if err != nil {
		return domain.FinancialRecord{}, invalid(index, "date", err)
	}

	product, err := coerceLabel(fields["product"])
	if err != nil {
		return domain.FinancialRecord{}, invalid(index, "product", err)
	}

	quantity, err := coerceAmount(fields["quantity"])
	if err != nil {
		return domain.FinancialRecord{}, invalid(index, "quantity", err)
	}

	price, err := coerceAmount(fields["price"])
	if err != nil {
		return domain.FinancialRecord{}, invalid(index, "price", err)
	}

	total := quantity * price
	if math.IsInf(total, 0) {
		return domain.FinancialRecord{}, invalid(index, "total",
			fmt.Errorf("quantity*price overflows: %v * %v", quantity, price))
	}
	if prov.SourceType == domain.SourceManual {
		if raw, ok := fields["total"]; ok && !isEmpty(raw) {
			supplied, err := coerceAmount(raw)
			if err != nil {
				return domain.FinancialRecord{}, invalid(index, "total", err)
			}
			if math.Abs(supplied-total) > manualTotalTolerance {
				return domain.FinancialRecord{}, invalid(index, "total",
					fmt.Errorf("%v does not match quantity*price (%v)", supplied, total))
			}
			total = supplied
		}
	}

	category := domain.DefaultCategory
	if c, ok := fields["category"]; ok {
		if s := strings.TrimSpace(scalarString(c)); s != "" {
			category = s
		}
	}

	return domain.FinancialRecord{
		OwnerID:     ownerID,
		Date:        date,
		Product:     product,
		Quantity:    quantity,
		Price:       price,
		Total:       total,
		Category:    category,
		SourceType:  prov.SourceType,
		SourceLabel: prov.SourceLabel,
	}, nil
}

func invalid(index int, field string, err error) error {
	return &domain.ErrInvalidRecord{Row: index, Field: field, Message: err.Error()}
}

var errMissing = errors.New("is required")

func lowerKeys(row domain.RawRow) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, dup := out[key]; dup && isEmpty(v) {
			continue
		}
		out[key] = v
	}
	return out
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// scalarString renders strings and numbers as text; other kinds yield "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func coerceLabel(v any) (string, error) {
	if isEmpty(v) {
		return "", errMissing
	}
	s := strings.TrimSpace(scalarString(v))
	if s == "" {
		return "", fmt.Errorf("must be text, got %T", v)
	}
	return s, nil
}

func coerceAmount(v any) (float64, error) {
	if isEmpty(v) {
		return 0, errMissing
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("is not a number: %q", t.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("is not a number: %q", t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("is not a number: %v", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("is not a finite number: %v", v)
	}
	if f < 0 {
		return 0, fmt.Errorf("must not be negative: %v", f)
	}
	return f, nil
}

// coerceDate parses a calendar date and truncates it to UTC midnight.
// Spreadsheet rows may carry the date as an Excel serial number.
func coerceDate(v any, source domain.SourceType) (time.Time, error) {
	if isEmpty(v) {
		return time.Time{}, errMissing
	}

	s := strings.TrimSpace(scalarString(v))
	if s == "" {
		return time.Time{}, fmt.Errorf("is not a date: %v", v)
	}

	if source == domain.SourceExcel {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return time.Time{}, fmt.Errorf("is not a valid spreadsheet date: %s", s)
			}
			return calendarDate(t), nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("is not a valid date: %q", s)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
