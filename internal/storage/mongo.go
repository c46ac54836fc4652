package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDatabase   = "crossgen"
	mongoCollection = "crosswords"
)

// Mongo stores one document per crossword in MongoDB.
type Mongo struct {
	client    *mongo.Client
	crossword *mongo.Collection
	timeout   time.Duration
}

// OpenMongo connects to the MongoDB server at url and ensures the indexes exist.
func OpenMongo(ctx context.Context, url string, timeout time.Duration) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	m := &Mongo{
		client:    client,
		crossword: client.Database(mongoDatabase).Collection(mongoCollection),
		timeout:   timeout,
	}
	if err := m.setup(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) setup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	model := mongo.IndexModel{Keys: d(e("created_at", -1))}
	if _, err := m.crossword.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("creating created_at index: %w", err)
	}
	return nil
}

// Save inserts or replaces c.
func (m *Mongo) Save(ctx context.Context, c *Crossword) error {
	stamp(c, time.Now())
	r, err := encode(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	opts := options.Replace().SetUpsert(true)
	if _, err := m.crossword.ReplaceOne(ctx, d(e("_id", r.ID)), r, opts); err != nil {
		return fmt.Errorf("saving crossword: %w", err)
	}
	return nil
}

// Get reads a crossword by ID.
func (m *Mongo) Get(ctx context.Context, id string) (*Crossword, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	var r record
	if err := m.crossword.FindOne(ctx, d(e("_id", id))).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading crossword: %w", err)
	}
	return decode(r)
}

// List reads every crossword, most recent first.
func (m *Mongo) List(ctx context.Context) ([]*Crossword, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	opts := options.Find().SetSort(d(e("created_at", -1), e("_id", 1)))
	cursor, err := m.crossword.Find(ctx, d(), opts)
	if err != nil {
		return nil, fmt.Errorf("listing crosswords: %w", err)
	}
	var records []record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("listing crosswords: %w", err)
	}
	list := make([]*Crossword, 0, len(records))
	for _, r := range records {
		c, err := decode(r)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, nil
}

// Delete removes a crossword.
func (m *Mongo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	res, err := m.crossword.DeleteOne(ctx, d(e("_id", id)))
	if err != nil {
		return fmt.Errorf("deleting crossword: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// d is a helper function to create bson.D elements.
func d(e ...bson.E) bson.D {
	return bson.D(e)
}

// e is a helper function to create bson.E elements.
func e(key string, value any) bson.E {
	return bson.E{Key: key, Value: value}
}
