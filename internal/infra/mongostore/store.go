package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/storekit"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("mongostore")

const (
	RecordsCollection = "financial_records"
	UsersCollection   = "users"
	ContactCollection = "contact_messages"

	serviceName = "mongodb"
)

// Options configures a Store.
type Options struct {
	Resilience   resilience.Config
	Transactions bool
	Timeout      time.Duration
}

// Store implements the record, user and contact stores on MongoDB.
type Store struct {
	provider CollectionProvider
	cb       *gobreaker.CircuitBreaker
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

var (
	_ port.RecordStore  = (*Store)(nil)
	_ port.UserStore    = (*Store)(nil)
	_ port.ContactStore = (*Store)(nil)
)

// NewStore creates a Store. Call EnsureIndexes once at startup.
func NewStore(provider CollectionProvider, cb *gobreaker.CircuitBreaker, opts Options, logger *zap.Logger) *Store {
	return &Store{provider: provider, cb: cb, opts: opts, logger: logger, now: time.Now}
}

// EnsureIndexes creates the owner/recency index on records, the unique
// lookup keys on users and the recency index on contact messages. The
// collections are indexed concurrently.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		RecordsCollection: {
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("owner_recency"),
			},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "username_key", Value: 1}},
				Options: options.Index().SetName("username_unique").SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "email_key", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true).
					SetPartialFilterExpression(bson.M{"email_key": bson.M{"$gt": ""}}),
			},
		},
		ContactCollection: {
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("contact_recency"),
			},
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, models := range indexes {
		name, models := name, models
		g.Go(func() error {
			if err := s.provider.Collection(name).CreateIndexes(gctx, models); err != nil {
				return fmt.Errorf("create indexes on %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

// ============================================================
// Records
// ============================================================

// Append writes the batch with one ordered InsertMany. With transactions
// enabled the insert runs in a session transaction; otherwise a partial
// insert is compensated by deleting the batch ids. Writes are never retried.
func (s *Store) Append(ctx context.Context, records []domain.FinancialRecord) (int, error) {
	ctx, span := tracer.Start(ctx, "Mongo.Append")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(records)), attribute.Bool("transactional", s.opts.Transactions))

	if len(records) == 0 {
		return 0, nil
	}

	batch := make([]domain.FinancialRecord, len(records))
	copy(batch, records)
	if err := storekit.Stamp(batch, s.now()); err != nil {
		return 0, err
	}

	docs := make([]interface{}, len(batch))
	ids := make([]string, len(batch))
	for i, r := range batch {
		docs[i] = r
		ids[i] = r.ID
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	coll := s.provider.Collection(RecordsCollection)
	insert := func(ctx context.Context) error {
		_, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
		return err
	}

	_, err := resilience.Guard(s.cb, serviceName, func() (struct{}, error) {
		if s.opts.Transactions {
			return struct{}{}, s.provider.WithTransaction(ctx, insert)
		}
		if err := insert(ctx); err != nil {
			s.compensate(coll, ids, err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return 0, s.wrap("append", err)
	}

	copy(records, batch)
	return len(batch), nil
}

// compensate removes whatever part of a failed batch was written.
func (s *Store) compensate(coll DataStore, ids []string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		s.logger.Error("mongo: failed to roll back partial batch",
			zap.Int("batch_size", len(ids)),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("mongo: rolled back partial batch",
		zap.Int("batch_size", len(ids)),
		zap.Int64("deleted", res.DeletedCount),
		zap.NamedError("cause", cause),
	)
}

// ListByOwner returns the owner's records newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.FinancialRecord, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID), attribute.Int("limit", limit))

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findRecords(ctx, "list", ownerID, opts)
}

// FindByOwner returns every record the owner has.
func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]domain.FinancialRecord, error) {
	ctx, span := tracer.Start(ctx, "Mongo.FindByOwner")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	return s.findRecords(ctx, "find", ownerID)
}

func (s *Store) findRecords(ctx context.Context, op, ownerID string, opts ...*options.FindOptions) ([]domain.FinancialRecord, error) {
	if err := storekit.RequireOwner(ownerID); err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	coll := s.provider.Collection(RecordsCollection)
	raws, err := resilience.Guard(s.cb, serviceName, func() ([]bson.Raw, error) {
		var docs []bson.Raw
		err := resilience.RetryWithBackoff(ctx, s.opts.Resilience, func() error {
			var err error
			docs, err = coll.FindAll(ctx, bson.M{"owner_id": ownerID}, opts...)
			return err
		})
		return docs, err
	})
	if err != nil {
		return nil, s.wrap(op, err)
	}

	out := make([]domain.FinancialRecord, 0, len(raws))
	for _, raw := range raws {
		var r domain.FinancialRecord
		if err := bson.Unmarshal(raw, &r); err != nil {
			return nil, &domain.ErrPersistence{Operation: op, Err: fmt.Errorf("decode record: %w", err)}
		}
		out = append(out, r)
	}
	return out, nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.provider.Ping(ctx)
}

func (s *Store) wrap(op string, err error) error {
	var (
		open     *domain.ErrCircuitOpen
		conflict *domain.ErrConflict
	)
	if errors.As(err, &open) || errors.As(err, &conflict) {
		return err
	}
	s.logger.Error("mongo: operation failed", zap.String("operation", op), zap.Error(err))
	return &domain.ErrPersistence{Operation: op, Err: err}
}

// ============================================================
// Users
// ============================================================

// userDoc adds case-folded lookup keys backing the unique indexes.
type userDoc struct {
	domain.User `bson:",inline"`
	UsernameKey string `bson:"username_key"`
	EmailKey    string `bson:"email_key"`
}

// CreateUser inserts a user, assigning an id when absent. Duplicate
// usernames or emails are reported as *domain.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Mongo.CreateUser")
	defer span.End()

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	}
	doc := userDoc{
		User:        stored,
		UsernameKey: strings.ToLower(stored.Username),
		EmailKey:    strings.ToLower(stored.Email),
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	_, err := resilience.Guard(s.cb, serviceName, func() (struct{}, error) {
		_, err := s.provider.Collection(UsersCollection).InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return struct{}{}, &domain.ErrConflict{Message: "Username or email already exists"}
		}
		return struct{}{}, err
	})
	if err != nil {
		return nil, s.wrap("create_user", err)
	}
	return &stored, nil
}

// GetUserByID returns nil, nil when no user matches.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, bson.M{"_id": userID})
}

// GetUserByUsername returns nil, nil when no user matches.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, bson.M{"username_key": strings.ToLower(username)})
}

// GetUserByEmail returns nil, nil when no user matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, nil
	}
	return s.getUser(ctx, bson.M{"email_key": strings.ToLower(email)})
}

func (s *Store) getUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Mongo.GetUser")
	defer span.End()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	coll := s.provider.Collection(UsersCollection)
	raw, err := resilience.Guard(s.cb, serviceName, func() (bson.Raw, error) {
		var doc bson.Raw
		err := resilience.RetryWithBackoff(ctx, s.opts.Resilience, func() error {
			var err error
			doc, err = coll.FindOne(ctx, filter)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return resilience.Permanent(err)
			}
			return err
		})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return doc, err
	})
	if err != nil {
		return nil, s.wrap("get_user", err)
	}
	if raw == nil {
		return nil, nil
	}

	var doc userDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, &domain.ErrPersistence{Operation: "get_user", Err: fmt.Errorf("decode user: %w", err)}
	}
	return &doc.User, nil
}

// ============================================================
// Contact messages
// ============================================================

// SaveContactMessage inserts msg, assigning id and createdAt.
func (s *Store) SaveContactMessage(ctx context.Context, msg *domain.ContactMessage) (*domain.ContactMessage, error) {
	ctx, span := tracer.Start(ctx, "Mongo.SaveContactMessage")
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

	_, err = resilience.Guard(s.cb, serviceName, func() (struct{}, error) {
		_, err := s.provider.Collection(ContactCollection).InsertOne(ctx, stored)
		return struct{}{}, err
	})
	if err != nil {
		return nil, s.wrap("save_contact", err)
	}
	return &stored, nil
}

// ListContactMessages returns every message newest first.
func (s *Store) ListContactMessages(ctx context.Context) ([]domain.ContactMessage, error) {
	ctx, span := tracer.Start(ctx, "Mongo.ListContactMessages")
	defer span.End()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	coll := s.provider.Collection(ContactCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	raws, err := resilience.Guard(s.cb, serviceName, func() ([]bson.Raw, error) {
		var docs []bson.Raw
		err := resilience.RetryWithBackoff(ctx, s.opts.Resilience, func() error {
			var err error
			docs, err = coll.FindAll(ctx, bson.M{}, opts)
			return err
		})
		return docs, err
	})
	if err != nil {
		return nil, s.wrap("list_contact", err)
	}

	out := make([]domain.ContactMessage, 0, len(raws))
	for _, raw := range raws {
		var m domain.ContactMessage
		if err := bson.Unmarshal(raw, &m); err != nil {
			return nil, &domain.ErrPersistence{Operation: "list_contact", Err: fmt.Errorf("decode contact message: %w", err)}
		}
		out = append(out, m)
	}
	return out, nil
}
