package store

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/coinstack/pkg/errors"
)

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string

	// ConnectTimeout bounds connection setup. Zero means 10 seconds.
	ConnectTimeout time.Duration
}

// MongoStore keeps each key as one document {_id, data, updated_at}.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to MongoDB and pings the primary.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "coinstack"
	}
	if cfg.Collection == "" {
		cfg.Collection = "portfolios"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "ping mongo")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// NewMongoStoreFromCollection wraps an existing collection. Close disconnects
// the collection's client.
func NewMongoStoreFromCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: coll.Database().Client(), coll: coll}
}

// Get reads key.
func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry mongoEntry
	err := RetryWithBackoff(ctx, func() error {
		return classify(s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&entry))
	})
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "mongo find %s", key)
	}
	return entry.Data, true, nil
}

// Set upserts key.
func (s *MongoStore) Set(ctx context.Context, key string, data []byte) error {
	entry := mongoEntry{Key: key, Data: data, UpdatedAt: time.Now().UTC()}
	err := RetryWithBackoff(ctx, func() error {
		_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
		return classify(err)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "mongo upsert %s", key)
	}
	return nil
}

// Delete removes key.
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	err := RetryWithBackoff(ctx, func() error {
		_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
		return classify(err)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "mongo delete %s", key)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
