// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
)

// RecordStore persists financial records. Every read is scoped by owner
// and there is no update or delete path.
type RecordStore interface {
	// Append persists the batch atomically, assigning ID and CreatedAt to
	// each record, and returns the number of records written.
	Append(ctx context.Context, records []domain.FinancialRecord) (int, error)

	// ListByOwner returns the owner's records newest CreatedAt first.
	// limit <= 0 returns every record.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.FinancialRecord, error)

	// FindByOwner returns all of the owner's records in no particular order.
	FindByOwner(ctx context.Context, ownerID string) ([]domain.FinancialRecord, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ContactStore persists contact-form messages.
type ContactStore interface {
	SaveContactMessage(ctx context.Context, msg *domain.ContactMessage) (*domain.ContactMessage, error)
	// ListContactMessages returns every message newest first.
	ListContactMessages(ctx context.Context) ([]domain.ContactMessage, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
