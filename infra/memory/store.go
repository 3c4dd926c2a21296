package memory

import (
	"affiliate/pkg/docstore"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Store keeps every collection in memory. Data is lost on restart.
// Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]docstore.Document
	unique      map[string][]string
}

func NewStore() *Store {
	return &Store{
		collections: make(map[string][]docstore.Document),
		unique:      make(map[string][]string),
	}
}

// deepCopy round-trips through JSON so callers never share maps with the
// store and values look exactly as they would coming back from a database.
func deepCopy(src docstore.Document) docstore.Document {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst docstore.Document
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (m *Store) Insert(_ context.Context, collection string, doc docstore.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := deepCopy(doc)
	if stored == nil {
		stored = docstore.Document{}
	}

	for _, field := range m.unique[collection] {
		value, ok := stored[field]
		if !ok {
			continue
		}
		for _, existing := range m.collections[collection] {
			if reflect.DeepEqual(existing[field], value) {
				return "", fmt.Errorf("%s.%s=%v: %w", collection, field, value, docstore.ErrDuplicateKey)
			}
		}
	}

	id := docstore.NewID()
	stored[docstore.IDField] = id
	m.collections[collection] = append(m.collections[collection], stored)

	return id, nil
}

func (m *Store) Find(_ context.Context, collection string, filter docstore.Filter, limit int) ([]docstore.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]docstore.Document, 0)
	for _, doc := range m.collections[collection] {
		if limit > 0 && len(docs) >= limit {
			break
		}
		if filter.Match(doc) {
			docs = append(docs, deepCopy(doc))
		}
	}

	return docs, nil
}

func (m *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	docs, err := m.Find(ctx, collection, filter, 1)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (m *Store) CollectionNames(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name, docs := range m.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

func (m *Store) EnsureUniqueIndex(_ context.Context, collection, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.unique[collection] {
		if existing == field {
			return nil
		}
	}
	m.unique[collection] = append(m.unique[collection], field)

	return nil
}

func (m *Store) Ping(context.Context) error {
	return nil
}

func (m *Store) Close() error {
	return nil
}
