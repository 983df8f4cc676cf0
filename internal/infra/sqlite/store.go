// Package sqlite provides the store ports backed by a single SQLite file,
// with schema managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/storekit"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var tracer = otel.Tracer("sqlite")

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Store implements the record, user and contact stores on SQLite.
type Store struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

var (
	_ port.RecordStore  = (*Store)(nil)
	_ port.UserStore    = (*Store)(nil)
	_ port.ContactStore = (*Store)(nil)
)

// Open creates the database directory if needed, opens the file, runs
// migrations and returns a ready store.
func Open(dbPath string, timeout time.Duration, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("sqlite store ready", zap.String("path", dbPath))

	return &Store{db: db, timeout: timeout, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ============================================================
// Records
// ============================================================

const insertRecord = `INSERT INTO financial_records
	(id, owner_id, date, product, quantity, price, total, category, source_type, source_label, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectRecords = `SELECT id, owner_id, date, product, quantity, price, total, category, source_type, source_label, created_at
	FROM financial_records WHERE owner_id = ?`

// Append inserts the batch inside one transaction.
func (s *Store) Append(ctx context.Context, records []domain.FinancialRecord) (int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.Append")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(records)))

	if len(records) == 0 {
		return 0, nil
	}

	batch := make([]domain.FinancialRecord, len(records))
	copy(batch, records)
	if err := storekit.Stamp(batch, s.now()); err != nil {
		return 0, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.ErrPersistence{Operation: "append", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return 0, &domain.ErrPersistence{Operation: "append", Err: err}
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.ID, r.OwnerID, r.Date.UTC().Format(dateLayout), r.Product,
			r.Quantity, r.Price, r.Total, r.Category,
			string(r.SourceType), r.SourceLabel, r.CreatedAt.Format(timestampLayout),
		)
		if err != nil {
			s.logger.Error("sqlite: insert failed, rolling back batch",
				zap.String("owner_id", r.OwnerID),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			return 0, &domain.ErrPersistence{Operation: "append", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.ErrPersistence{Operation: "append", Err: err}
	}

	copy(records, batch)
	return len(batch), nil
}

// ListByOwner returns the owner's records newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.FinancialRecord, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID), attribute.Int("limit", limit))

	query := selectRecords + " ORDER BY created_at DESC, id DESC"
	args := []any{ownerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryRecords(ctx, "list", ownerID, query, args...)
}

// FindByOwner returns every record the owner has.
func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]domain.FinancialRecord, error) {
	ctx, span := tracer.Start(ctx, "SQLite.FindByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	return s.queryRecords(ctx, "find", ownerID, selectRecords, ownerID)
}

func (s *Store) queryRecords(ctx context.Context, op, ownerID, query string, args ...any) ([]domain.FinancialRecord, error) {
	if err := storekit.RequireOwner(ownerID); err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.ErrPersistence{Operation: op, Err: err}
	}
	defer rows.Close()

	out := []domain.FinancialRecord{}
	for rows.Next() {
		var (
			r               domain.FinancialRecord
			date, createdAt string
			sourceType      string
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &date, &r.Product, &r.Quantity, &r.Price,
			&r.Total, &r.Category, &sourceType, &r.SourceLabel, &createdAt); err != nil {
			return nil, &domain.ErrPersistence{Operation: op, Err: err}
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, &domain.ErrPersistence{Operation: op, Err: fmt.Errorf("decode date of %s: %w", r.ID, err)}
		}
		if r.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, &domain.ErrPersistence{Operation: op, Err: fmt.Errorf("decode created_at of %s: %w", r.ID, err)}
		}
		r.SourceType = domain.SourceType(sourceType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrPersistence{Operation: op, Err: err}
	}
	return out, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// ============================================================
// Users
// ============================================================

const selectUser = `SELECT id, username, email, name, role, password_hash, created_at FROM users WHERE `

// CreateUser inserts a user, assigning an id when absent. Duplicate
// usernames or emails are reported as *domain.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateUser")
	defer span.End()

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, name, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Username, stored.Email, stored.Name, stored.Role, stored.PasswordHash,
		stored.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		var sqlErr *sqlitedriver.Error
		// Primary code only; extended codes (UNIQUE, PRIMARYKEY) share the low byte.
		if errors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return nil, &domain.ErrConflict{Message: "Username or email already exists"}
		}
		return nil, &domain.ErrPersistence{Operation: "create_user", Err: err}
	}
	return &stored, nil
}

// GetUserByID returns nil, nil when no user matches.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, "id = ?", userID)
}

// GetUserByUsername returns nil, nil when no user matches.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, "username = ? COLLATE NOCASE", username)
}

// GetUserByEmail returns nil, nil when no user matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, "email = ? COLLATE NOCASE AND email <> ''", email)
}

func (s *Store) getUser(ctx context.Context, where string, arg string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetUser")
	defer span.End()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var (
		u         domain.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, selectUser+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ErrPersistence{Operation: "get_user", Err: err}
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, &domain.ErrPersistence{Operation: "get_user", Err: err}
	}
	return &u, nil
}

// ============================================================
// Contact messages
// ============================================================

// SaveContactMessage inserts msg, assigning id and createdAt.
func (s *Store) SaveContactMessage(ctx context.Context, msg *domain.ContactMessage) (*domain.ContactMessage, error) {
	ctx, span := tracer.Start(ctx, "SQLite.SaveContactMessage")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	stored := *msg
	stored.ID = id.String()
	stored.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, subject, message, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Name, stored.Email, stored.Subject, stored.Message, stored.UserID,
		stored.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, &domain.ErrPersistence{Operation: "save_contact", Err: err}
	}
	return &stored, nil
}

// ListContactMessages returns every message newest first.
func (s *Store) ListContactMessages(ctx context.Context) ([]domain.ContactMessage, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListContactMessages")
	defer span.End()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, subject, message, user_id, created_at FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, &domain.ErrPersistence{Operation: "list_contact", Err: err}
	}
	defer rows.Close()

	out := []domain.ContactMessage{}
	for rows.Next() {
		var (
			m         domain.ContactMessage
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.UserID, &createdAt); err != nil {
			return nil, &domain.ErrPersistence{Operation: "list_contact", Err: err}
		}
		if m.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, &domain.ErrPersistence{Operation: "list_contact", Err: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrPersistence{Operation: "list_contact", Err: err}
	}
	return out, nil
}
