package storekit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/storekit"
)

func TestStamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 123456789, time.UTC)
	records := []domain.FinancialRecord{{OwnerID: "o"}, {OwnerID: "o"}}

	if err := storekit.Stamp(records, now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := now.Truncate(time.Millisecond)
	for i, r := range records {
		if r.ID == "" {
			t.Errorf("record %d: expected id", i)
		}
		if !r.CreatedAt.Equal(want) {
			t.Errorf("record %d: expected createdAt %s, got %s", i, want, r.CreatedAt)
		}
	}
	if records[0].ID >= records[1].ID {
		t.Errorf("expected ids in generation order, got %s then %s", records[0].ID, records[1].ID)
	}
}

func TestStamp_RejectsEmptyOwner(t *testing.T) {
	err := storekit.Stamp([]domain.FinancialRecord{{OwnerID: "o"}, {}}, time.Now())

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSortNewestFirst(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.FinancialRecord{
		{ID: "a", CreatedAt: t0},
		{ID: "c", CreatedAt: t0.Add(time.Second)},
		{ID: "b", CreatedAt: t0},
	}

	storekit.SortNewestFirst(records)

	got := records[0].ID + records[1].ID + records[2].ID
	if got != "cba" {
		t.Errorf("expected order cba, got %s", got)
	}
}

func TestLimit(t *testing.T) {
	records := make([]domain.FinancialRecord, 7)

	if n := len(storekit.Limit(records, 5)); n != 5 {
		t.Errorf("expected 5, got %d", n)
	}
	if n := len(storekit.Limit(records, 0)); n != 7 {
		t.Errorf("expected all 7 for limit 0, got %d", n)
	}
	if n := len(storekit.Limit(records, 10)); n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}
