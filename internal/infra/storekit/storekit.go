// Package storekit holds the bookkeeping every RecordStore adapter shares:
// id/timestamp stamping, owner checks and recency ordering.
package storekit

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"

	"github.com/google/uuid"
)

// Stamp assigns a time-ordered id and a creation timestamp to each record in
// place. Timestamps are truncated to milliseconds, the coarsest precision of
// any backend, so ordering is identical everywhere.
func Stamp(records []domain.FinancialRecord, now time.Time) error {
	createdAt := now.UTC().Truncate(time.Millisecond)
	for i := range records {
		if err := RequireOwner(records[i].OwnerID); err != nil {
			return err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
		records[i].ID = id.String()
		records[i].CreatedAt = createdAt
	}
	return nil
}

// RequireOwner rejects the empty owner so no query is ever unscoped.
func RequireOwner(ownerID string) error {
	if ownerID == "" {
		return &domain.ErrValidation{Field: "owner_id", Message: "is required"}
	}
	return nil
}

// SortNewestFirst orders by CreatedAt descending, then ID descending.
// UUIDv7 strings sort in generation order, which breaks same-millisecond ties.
func SortNewestFirst(records []domain.FinancialRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

// Limit truncates records to n when n > 0.
func Limit(records []domain.FinancialRecord, n int) []domain.FinancialRecord {
	if n > 0 && n < len(records) {
		return records[:n]
	}
	return records
}
