package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestRoutingKey(t *testing.T) {
	e := NewEvent(ClickRecordedEvent, EventVersionV1, nil, NewHeaders("affiliate"))
	if got := e.GetRoutingKey(); got != "click.recorded.v1" {
		t.Fatalf("expected click.recorded.v1, got %s", got)
	}
}

func TestNewHeadersGeneratesIDs(t *testing.T) {
	h := NewHeaders("affiliate")
	if h.TraceID == "" || h.CorrelationID == "" || h.TraceID == h.CorrelationID {
		t.Fatalf("unexpected headers %+v", h)
	}
	if h.Service != "affiliate" {
		t.Fatalf("expected service affiliate, got %s", h.Service)
	}
}

func TestDecodePayloadAfterRoundTrip(t *testing.T) {
	clickedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	sent := NewEvent(ClickRecordedEvent, EventVersionV1, ClickRecordedPayload{
		ProductID: "65f000000000000000000001",
		Source:    "hero",
		ClickedAt: clickedAt,
	}, NewHeaders("affiliate"))

	body, err := sent.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	var received Event
	if err := json.Unmarshal(body, &received); err != nil {
		t.Fatal(err)
	}

	var payload ClickRecordedPayload
	if err := received.DecodePayload(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.ProductID != "65f000000000000000000001" || payload.Source != "hero" || !payload.ClickedAt.Equal(clickedAt) {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if received.TraceID != sent.TraceID {
		t.Fatalf("trace id lost: %s vs %s", received.TraceID, sent.TraceID)
	}
}

type recordingPublisher struct {
	exchange string
	event    *Event
}

func (r *recordingPublisher) Publish(_ context.Context, exchange string, event *Event, _ Headers) error {
	r.exchange = exchange
	r.event = event
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestPublishV1(t *testing.T) {
	if err := PublishV1(context.Background(), nil, "affiliate", CatalogExchange, CategoryCreatedEvent, nil); err != nil {
		t.Fatalf("nil publisher should be a no-op, got %v", err)
	}

	p := &recordingPublisher{}
	payload := CategoryCreatedPayload{ID: "1", Name: "Espresso", Slug: "espresso"}
	if err := PublishV1(context.Background(), p, "affiliate", CatalogExchange, CategoryCreatedEvent, payload); err != nil {
		t.Fatal(err)
	}
	if p.exchange != CatalogExchange {
		t.Fatalf("expected exchange %s, got %s", CatalogExchange, p.exchange)
	}
	if p.event.GetRoutingKey() != "category.created.v1" || p.event.TraceID == "" {
		t.Fatalf("unexpected event %+v", p.event)
	}
}
