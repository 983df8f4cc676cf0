// Package mongostore provides the record, user and contact stores backed by MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/infra/resilience"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ---- Abstractions for testability ----

// DataStore is the slice of *mongo.Collection the stores use.
type DataStore interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	// FindAll drains the cursor for filter into raw documents.
	FindAll(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.Raw, error)
	// FindOne returns mongo.ErrNoDocuments when nothing matches.
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.Raw, error)
	CreateIndexes(ctx context.Context, models []mongo.IndexModel) error
}

// CollectionProvider hands out collections of one database.
type CollectionProvider interface {
	Collection(name string) DataStore
	// WithTransaction runs fn inside a multi-document transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}

// MongoCollection adapts *mongo.Collection to DataStore.
type MongoCollection struct {
	*mongo.Collection
}

// FindAll runs Find and decodes every document.
func (c *MongoCollection) FindAll(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.Raw, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	var docs []bson.Raw
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("drain cursor of %s: %w", c.Name(), err)
	}
	return docs, nil
}

// FindOne returns the first matching raw document.
func (c *MongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (bson.Raw, error) {
	return c.Collection.FindOne(ctx, filter, opts...).Raw()
}

// CreateIndexes creates the given indexes; existing identical ones are kept.
func (c *MongoCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	if _, err := c.Collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", c.Name(), err)
	}
	return nil
}

// MongoProvider adapts *mongo.Client to CollectionProvider.
type MongoProvider struct {
	client   *mongo.Client
	database string
}

// NewMongoProvider creates a provider for the named database.
func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{client: client, database: database}
}

// Collection returns a DataStore for the given collection name.
func (p *MongoProvider) Collection(name string) DataStore {
	return &MongoCollection{p.client.Database(p.database).Collection(name)}
}

// WithTransaction runs fn in a session transaction. Requires a replica set.
func (p *MongoProvider) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := p.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping checks the primary is reachable.
func (p *MongoProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// Connect dials MongoDB and retries the initial ping with backoff.
func Connect(ctx context.Context, uri string, cfg resilience.Config, logger *zap.Logger) (*mongo.Client, error) {
	logger.Debug("connecting to mongodb")

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	err = resilience.RetryWithBackoff(ctx, cfg, func() error {
		return client.Ping(ctx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to mongodb")
	return client, nil
}
