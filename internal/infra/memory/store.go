// Package memory provides in-process implementations of the store ports
// for local development and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/storekit"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"github.com/google/uuid"
)

// Store keeps records, users and contact messages guarded by one RWMutex.
// Data is lost on restart.
type Store struct {
	mu      sync.RWMutex
	records map[string][]domain.FinancialRecord // by owner
	users   map[string]*domain.User             // by id
	contact []domain.ContactMessage
	now     func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string][]domain.FinancialRecord),
		users:   make(map[string]*domain.User),
		now:     time.Now,
	}
}

var (
	_ port.RecordStore  = (*Store)(nil)
	_ port.UserStore    = (*Store)(nil)
	_ port.ContactStore = (*Store)(nil)
)

// ============================================================
// Records
// ============================================================

// Append stamps and stores the batch under a single lock, so either every
// record becomes visible or none does.
func (s *Store) Append(ctx context.Context, records []domain.FinancialRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := make([]domain.FinancialRecord, len(records))
	copy(batch, records)
	if err := storekit.Stamp(batch, s.now()); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range batch {
		s.records[r.OwnerID] = append(s.records[r.OwnerID], r)
	}
	copy(records, batch)
	return len(batch), nil
}

// ListByOwner returns the owner's records newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.FinancialRecord, error) {
	out, err := s.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	storekit.SortNewestFirst(out)
	return storekit.Limit(out, limit), nil
}

// FindByOwner returns a copy of every record the owner has.
func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]domain.FinancialRecord, error) {
	if err := storekit.RequireOwner(ownerID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.records[ownerID]
	out := make([]domain.FinancialRecord, len(owned))
	copy(out, owned)
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// ============================================================
// Users
// ============================================================

// CreateUser stores a new user, assigning an id when absent.
// Username and email are unique, case-insensitively.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return nil, &domain.ErrConflict{Message: "Username already exists"}
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return nil, &domain.ErrConflict{Message: "Email already exists"}
		}
	}

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetUserByID returns nil, nil when no user matches.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID]; ok {
		out := *u
		return &out, nil
	}
	return nil, nil
}

// GetUserByUsername returns nil, nil when no user matches.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(func(u *domain.User) bool { return strings.EqualFold(u.Username, username) })
}

// GetUserByEmail returns nil, nil when no user matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, nil
	}
	return s.findUser(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) findUser(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

// ============================================================
// Contact messages
// ============================================================

// SaveContactMessage stores msg, assigning id and createdAt.
func (s *Store) SaveContactMessage(ctx context.Context, msg *domain.ContactMessage) (*domain.ContactMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	stored := *msg
	stored.ID = id.String()
	stored.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contact = append(s.contact, stored)
	return &stored, nil
}

// ListContactMessages returns every message newest first.
func (s *Store) ListContactMessages(ctx context.Context) ([]domain.ContactMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ContactMessage, len(s.contact))
	for i, m := range s.contact {
		out[len(out)-1-i] = m
	}
	return out, nil
}
