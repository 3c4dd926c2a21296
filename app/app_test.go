package app

import (
	"affiliate/domain"
	"affiliate/infra/memory"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"affiliate/pkg/httperror"
	"context"
	"errors"
	"sync"
	"testing"
)

func newRepository(t *testing.T) *docstore.Store {
	t.Helper()
	store := docstore.New(memory.NewStore())
	if err := store.EnsureUniqueIndex(context.Background(), domain.CategoryCollection, "slug"); err != nil {
		t.Fatal(err)
	}
	return store
}

func requireHTTPError(t *testing.T, err error, status int, code string) *httperror.Error {
	t.Helper()
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *httperror.Error, got %v", err)
	}
	if httpErr.Status != status || httpErr.Code != code {
		t.Fatalf("expected %d %s, got %d %s", status, code, httpErr.Status, httpErr.Code)
	}
	return httpErr
}

func ptr[T any](v T) *T { return &v }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event *events.Event, _ events.Headers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

func createCategory(t *testing.T, repo Repository, name, slug string) string {
	t.Helper()
	res, err := NewCreateCategoryHandler(repo, nil, "affiliate").Handle(context.Background(), &CreateCategoryRequest{Name: name, Slug: slug})
	if err != nil {
		t.Fatalf("create category %s: %v", slug, err)
	}
	return res.ID
}

func createProduct(t *testing.T, repo Repository, p domain.Product) string {
	t.Helper()
	res, err := NewCreateProductHandler(repo, nil, "affiliate").Handle(context.Background(), &p)
	if err != nil {
		t.Fatalf("create product %s: %v", p.Title, err)
	}
	return res.ID
}
