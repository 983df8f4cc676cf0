package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/cache"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/memory"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"
)

// --- Mocks ---

// failingRecordStore fails every call with err.
type failingRecordStore struct {
	err error
}

func (m *failingRecordStore) Append(_ context.Context, _ []domain.FinancialRecord) (int, error) {
	return 0, m.err
}

func (m *failingRecordStore) ListByOwner(_ context.Context, _ string, _ int) ([]domain.FinancialRecord, error) {
	return nil, m.err
}

func (m *failingRecordStore) FindByOwner(_ context.Context, _ string) ([]domain.FinancialRecord, error) {
	return nil, m.err
}

func (m *failingRecordStore) Ping(_ context.Context) error { return m.err }

var errStoreDown = &domain.ErrPersistence{Operation: "append", Err: errors.New("connection refused")}

// countingUserStore counts GetUserByID calls on top of the memory store.
type countingUserStore struct {
	*memory.Store
	mu      sync.Mutex
	byIDHit int
}

func (m *countingUserStore) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	m.byIDHit++
	m.mu.Unlock()
	return m.Store.GetUserByID(ctx, userID)
}

func (m *countingUserStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byIDHit
}

var _ port.UserStore = (*countingUserStore)(nil)

func newTestCache[T any](t *testing.T) *cache.InMemory[T] {
	t.Helper()
	c := cache.New[T](time.Minute)
	t.Cleanup(c.Close)
	return c
}

// commitAfterReadStore appends late to the memory store right after the
// first FindByOwner returns, as a concurrent upload would.
type commitAfterReadStore struct {
	*memory.Store
	late domain.FinancialRecord
	once sync.Once
}

func (m *commitAfterReadStore) FindByOwner(ctx context.Context, ownerID string) ([]domain.FinancialRecord, error) {
	records, err := m.Store.FindByOwner(ctx, ownerID)
	m.once.Do(func() {
		_, _ = m.Store.Append(ctx, []domain.FinancialRecord{m.late})
	})
	return records, err
}
