package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CreatedAtField is stamped on every document at insert time.
const CreatedAtField = "created_at"

var (
	ErrStoreUnavailable = errors.New("document store is not available")
	ErrStoreWrite       = errors.New("document store write failed")
	ErrDuplicateKey     = errors.New("duplicate key")
)

// Backend is implemented by every database engine the service can run on.
type Backend interface {
	// Insert stores doc in collection and returns the assigned identifier.
	// A unique index violation must be reported as ErrDuplicateKey.
	Insert(ctx context.Context, collection string, doc Document) (string, error)

	// Find returns documents matching filter, at most limit when limit > 0.
	Find(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error)

	// FindOne returns the first match, or nil when nothing matches.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)

	CollectionNames(ctx context.Context) ([]string, error)
	EnsureUniqueIndex(ctx context.Context, collection, field string) error
	Ping(ctx context.Context) error
	Close() error
}

// Store is the document store handle shared by all handlers. A Store without
// a backend stands for "not configured": every operation returns
// ErrStoreUnavailable instead of failing hard.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Configured reports whether a backend is attached.
func (s *Store) Configured() bool {
	return s != nil && s.backend != nil
}

func (s *Store) CreateDocument(ctx context.Context, collection string, payload any) (string, error) {
	if !s.Configured() {
		return "", ErrStoreUnavailable
	}

	doc, err := ToDocument(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	record := make(Document, len(doc)+1)
	for k, v := range doc {
		record[k] = v
	}
	if _, ok := record[CreatedAtField]; !ok {
		record[CreatedAtField] = time.Now().UTC()
	}

	id, err := s.backend.Insert(ctx, collection, record)
	if err != nil {
		return "", fmt.Errorf("%w: insert into %s: %w", ErrStoreWrite, collection, err)
	}

	return id, nil
}

func (s *Store) GetDocuments(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error) {
	if !s.Configured() {
		return nil, ErrStoreUnavailable
	}

	docs, err := s.backend.Find(ctx, collection, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	return docs, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	if !s.Configured() {
		return nil, ErrStoreUnavailable
	}

	doc, err := s.backend.FindOne(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("find one in %s: %w", collection, err)
	}

	return doc, nil
}

func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	if !s.Configured() {
		return nil, ErrStoreUnavailable
	}

	return s.backend.CollectionNames(ctx)
}

func (s *Store) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	if !s.Configured() {
		return ErrStoreUnavailable
	}

	return s.backend.EnsureUniqueIndex(ctx, collection, field)
}

func (s *Store) Ping(ctx context.Context) error {
	if !s.Configured() {
		return ErrStoreUnavailable
	}

	return s.backend.Ping(ctx)
}

func (s *Store) Close() error {
	if !s.Configured() {
		return nil
	}

	return s.backend.Close()
}
