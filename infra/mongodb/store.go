package mongodb

import (
	"affiliate/pkg/docstore"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Store is the MongoDB backend. Collections map one-to-one to Mongo
// collections and identifiers are native ObjectIDs.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		return nil, errors.New("mongo: database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(50))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	zap.L().Info("Connected to MongoDB", zap.String("database", database))

	return &Store{
		client: client,
		db:     client.Database(database),
	}, nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	oid := primitive.NewObjectID()

	record := make(bson.M, len(doc)+1)
	for k, v := range doc {
		record[k] = v
	}
	record[docstore.IDField] = oid

	if _, err := s.db.Collection(collection).InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", collection, docstore.ErrDuplicateKey)
		}
		return "", err
	}

	return oid.Hex(), nil
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter, limit int) ([]docstore.Document, error) {
	query, ok := buildFilter(filter)
	if !ok {
		return []docstore.Document{}, nil
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	var records []bson.M
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, toDocument(record))
	}

	return docs, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	query, ok := buildFilter(filter)
	if !ok {
		return nil, nil
	}

	var record bson.M
	if err := s.db.Collection(collection).FindOne(ctx, query).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return toDocument(record), nil
}

func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.D{})
}

func (s *Store) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(field + "_unique"),
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// buildFilter translates a docstore filter into a Mongo query. ok is false
// when the filter can never match, e.g. an id that is not an ObjectID.
func buildFilter(f docstore.Filter) (bson.M, bool) {
	query := bson.M{}

	if f.ID != "" {
		oid, err := primitive.ObjectIDFromHex(f.ID)
		if err != nil {
			return nil, false
		}
		query[docstore.IDField] = oid
	}

	for field, value := range f.Equals {
		query[field] = value
	}

	if f.Search != nil && f.Search.Term != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search.Term), Options: "i"}
		or := make(bson.A, 0, len(f.Search.Fields))
		for _, field := range f.Search.Fields {
			// $regex against an array field matches any element.
			or = append(or, bson.M{field: pattern})
		}
		if len(or) > 0 {
			query["$or"] = or
		}
	}

	return query, true
}

func toDocument(record bson.M) docstore.Document {
	doc := make(docstore.Document, len(record))
	for k, v := range record {
		doc[k] = fromBSON(v)
	}
	return doc
}

func fromBSON(v any) any {
	switch val := v.(type) {
	case bson.M:
		return toDocument(val)
	case bson.D:
		doc := make(docstore.Document, len(val))
		for _, e := range val {
			doc[e.Key] = fromBSON(e.Value)
		}
		return doc
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}
