package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRecordClick(t *testing.T) {
	repo := newRepository(t)
	h := NewRecordClickHandler(repo)

	// Clicks are not checked against existing products.
	res, err := h.Handle(context.Background(), &RecordClickRequest{ProductID: "anything", Source: "newsletter"})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := repo.FindOne(context.Background(), domain.ClickCollection, docstore.ByID(res.ID))
	if err != nil || doc == nil {
		t.Fatalf("expected stored click, got %v %v", doc, err)
	}
	if doc["product_id"] != "anything" || doc["source"] != "newsletter" {
		t.Fatalf("unexpected click %v", doc)
	}

	_, err = h.Handle(context.Background(), &RecordClickRequest{Source: "newsletter"})
	requireHTTPError(t, err, http.StatusUnprocessableEntity, "click.create.validation_failed")
}

func clicks(t *testing.T, repo Repository) []domain.Click {
	t.Helper()
	docs, err := repo.GetDocuments(context.Background(), domain.ClickCollection, docstore.Filter{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]domain.Click, 0, len(docs))
	for _, doc := range docs {
		var click domain.Click
		if err := docstore.Decode(doc, &click); err != nil {
			t.Fatal(err)
		}
		out = append(out, click)
	}
	return out
}

func TestRedirect(t *testing.T) {
	repo := newRepository(t)
	id := createProduct(t, repo, domain.Product{Title: "Grinder", AffiliateURL: "https://shop.example.com/p?id=1&ref=x"})
	recorder := NewClickRecorder(NewStoreClickSink(repo), time.Second)
	h := NewRedirectHandler(repo, recorder)

	res, err := h.Handle(context.Background(), &RedirectRequest{ProductID: id})
	if err != nil {
		t.Fatal(err)
	}
	if res.RedirectLocation() != "https://shop.example.com/p?id=1&ref=x" {
		t.Fatalf("unexpected location %q", res.RedirectLocation())
	}

	if _, err := h.Handle(context.Background(), &RedirectRequest{ProductID: id, Source: "hero"}); err != nil {
		t.Fatal(err)
	}

	recorder.Wait()

	got := clicks(t, repo)
	if len(got) != 2 {
		t.Fatalf("expected 2 clicks, got %v", got)
	}
	sources := map[string]bool{}
	for _, c := range got {
		if c.ProductID != id {
			t.Fatalf("unexpected product id %q", c.ProductID)
		}
		sources[c.Source] = true
	}
	if !sources["direct"] || !sources["hero"] {
		t.Fatalf("expected direct and hero sources, got %v", got)
	}
}

func TestRedirectProductNotFound(t *testing.T) {
	repo := newRepository(t)
	recorder := NewClickRecorder(NewStoreClickSink(repo), time.Second)
	h := NewRedirectHandler(repo, recorder)

	for _, id := range []string{docstore.NewID(), "not-an-object-id"} {
		_, err := h.Handle(context.Background(), &RedirectRequest{ProductID: id})
		requireHTTPError(t, err, http.StatusNotFound, "redirect.product_not_found")
	}

	recorder.Wait()
	if got := clicks(t, repo); len(got) != 0 {
		t.Fatalf("expected no clicks, got %v", got)
	}
}

type failingSink struct {
	panics bool
}

func (s failingSink) RecordClick(context.Context, domain.Click) error {
	if s.panics {
		panic("sink exploded")
	}
	return errors.New("sink down")
}

func TestRedirectIgnoresClickFailures(t *testing.T) {
	repo := newRepository(t)
	id := createProduct(t, repo, domain.Product{Title: "Grinder", AffiliateURL: "https://shop.example.com/g"})

	for _, sink := range []ClickSink{failingSink{}, failingSink{panics: true}} {
		recorder := NewClickRecorder(sink, time.Second)
		h := NewRedirectHandler(repo, recorder)

		res, err := h.Handle(context.Background(), &RedirectRequest{ProductID: id})
		if err != nil {
			t.Fatal(err)
		}
		if res.Location != "https://shop.example.com/g" {
			t.Fatalf("unexpected location %q", res.Location)
		}
		recorder.Wait()
	}
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	err     error
}

func (s *blockingSink) RecordClick(ctx context.Context, _ domain.Click) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		s.mu.Lock()
		s.err = ctx.Err()
		s.mu.Unlock()
	}
	return nil
}

func TestClickRecorderDoesNotBlock(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	recorder := NewClickRecorder(sink, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		recorder.Record(ctx, domain.Click{ProductID: "p1", Source: "direct"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on the sink")
	}

	// Request cancellation must not reach the sink.
	cancel()
	time.Sleep(10 * time.Millisecond)
	close(sink.release)
	recorder.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.err != nil {
		t.Fatalf("sink saw cancellation: %v", sink.err)
	}
}

func TestClickRecorderTimeout(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	recorder := NewClickRecorder(sink, 20*time.Millisecond)

	recorder.Record(context.Background(), domain.Click{ProductID: "p1"})
	recorder.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if !errors.Is(sink.err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", sink.err)
	}
}

type countingSink struct {
	n atomic.Int64
}

func (s *countingSink) RecordClick(context.Context, domain.Click) error {
	s.n.Add(1)
	return nil
}

func TestClickRecorderDropsClicksAfterWait(t *testing.T) {
	sink := &countingSink{}
	recorder := NewClickRecorder(sink, time.Second)

	recorder.Record(context.Background(), domain.Click{ProductID: "p1"})
	recorder.Wait()
	recorder.Record(context.Background(), domain.Click{ProductID: "p2"})
	recorder.Wait()

	if got := sink.n.Load(); got != 1 {
		t.Fatalf("expected 1 recorded click, got %d", got)
	}
}

func TestClickRecorderRecordRacesWait(t *testing.T) {
	sink := &countingSink{}
	recorder := NewClickRecorder(sink, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Record(context.Background(), domain.Click{ProductID: "p1"})
		}()
	}
	recorder.Wait()
	wg.Wait()

	// Every click accepted before shutdown has been stored by the time Wait returns again.
	before := sink.n.Load()
	recorder.Wait()
	if after := sink.n.Load(); after != before || after > 50 {
		t.Fatalf("expected no clicks after shutdown, got %d then %d", before, after)
	}
}

func TestPublisherClickSink(t *testing.T) {
	publisher := &recordingPublisher{}
	sink := NewPublisherClickSink(publisher, "affiliate")

	if err := sink.RecordClick(context.Background(), domain.Click{ProductID: "p1", Source: "hero"}); err != nil {
		t.Fatal(err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.GetRoutingKey() != "click.recorded.v1" {
		t.Fatalf("unexpected routing key %s", event.GetRoutingKey())
	}
	payload, ok := event.Payload.(events.ClickRecordedPayload)
	if !ok || payload.ProductID != "p1" || payload.Source != "hero" {
		t.Fatalf("unexpected payload %#v", event.Payload)
	}
}
