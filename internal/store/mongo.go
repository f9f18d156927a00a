package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hashpaste/internal/model"
	"hashpaste/internal/util"
)

type mongoDoc struct {
	ID        string     `bson:"id"`
	ZText     []byte     `bson:"z"`
	Lang      string     `bson:"lang"`
	CreatedAt time.Time  `bson:"created_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// Mongo stores one document per paste, keyed by a unique "id" field.
// A TTL index on expires_at lets the server reap expired pastes; Get still
// checks expiry because the TTL monitor runs only periodically.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

// DialMongo connects to uri and prepares the pastes collection in database.
func DialMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s, err := NewMongo(cctx, client.Database(database).Collection("pastes"))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.client = client
	return s, nil
}

// NewMongo ensures the indexes on col exist.
func NewMongo(ctx context.Context, col *mongo.Collection) (*Mongo, error) {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return &Mongo{col: col}, nil
}

func (s *Mongo) Create(ctx context.Context, p model.Paste) (bool, error) {
	z, err := util.GzipEncode(p.Text)
	if err != nil {
		return false, err
	}
	doc := mongoDoc{
		ID:        p.ID,
		ZText:     z,
		Lang:      p.Lang,
		CreatedAt: p.CreatedAt,
	}
	if !p.ExpiresAt.IsZero() {
		exp := p.ExpiresAt
		doc.ExpiresAt = &exp
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("mongo insert: %w", err)
	}
	return true, nil
}

func (s *Mongo) Get(ctx context.Context, id string) (model.Paste, error) {
	var doc mongoDoc
	err := s.col.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Paste{}, ErrNotFound
	}
	if err != nil {
		return model.Paste{}, fmt.Errorf("mongo find: %w", err)
	}
	text, err := util.GzipDecode(doc.ZText)
	if err != nil {
		return model.Paste{}, fmt.Errorf("decode paste %s: %w", id, err)
	}
	p := model.Paste{ID: doc.ID, Text: text, Lang: doc.Lang, CreatedAt: doc.CreatedAt}
	if doc.ExpiresAt != nil {
		p.ExpiresAt = *doc.ExpiresAt
	}
	if p.Expired(time.Now()) {
		return model.Paste{}, ErrNotFound
	}
	return p, nil
}

func (s *Mongo) Count(ctx context.Context) (int, error) {
	n, err := s.col.CountDocuments(ctx, liveFilter(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("mongo count: %w", err)
	}
	return int(n), nil
}

func (s *Mongo) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func liveFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$exists": false}},
		bson.M{"expires_at": bson.M{"$gt": now}},
	}}
}
