package app

import (
	"affiliate/domain"
	"affiliate/pkg/events"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ClickSink persists a click somewhere.
type ClickSink interface {
	RecordClick(ctx context.Context, click domain.Click) error
}

// StoreClickSink writes clicks straight into the click collection.
type StoreClickSink struct {
	repository Repository
}

func NewStoreClickSink(repository Repository) *StoreClickSink {
	return &StoreClickSink{repository: repository}
}

func (s *StoreClickSink) RecordClick(ctx context.Context, click domain.Click) error {
	_, err := s.repository.CreateDocument(ctx, domain.ClickCollection, click)
	return err
}

// PublisherClickSink hands clicks to the broker; the worker stores them.
type PublisherClickSink struct {
	eventPublisher events.Publisher
	serviceName    string
}

func NewPublisherClickSink(eventPublisher events.Publisher, serviceName string) *PublisherClickSink {
	return &PublisherClickSink{
		eventPublisher: eventPublisher,
		serviceName:    serviceName,
	}
}

func (s *PublisherClickSink) RecordClick(ctx context.Context, click domain.Click) error {
	payload := events.ClickRecordedPayload{
		ProductID: click.ProductID,
		Source:    click.Source,
		ClickedAt: time.Now().UTC(),
	}

	return events.PublishV1(ctx, s.eventPublisher, s.serviceName, events.ClickExchange, events.ClickRecordedEvent, payload)
}

// ClickRecorder records redirect clicks in the background. Record never
// blocks and never reports failure to the caller: errors are logged and
// dropped.
type ClickRecorder struct {
	sink    ClickSink
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewClickRecorder(sink ClickSink, timeout time.Duration) *ClickRecorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &ClickRecorder{
		sink:    sink,
		timeout: timeout,
	}
}

// Record hands click to the sink in the background. Clicks arriving after
// Wait has started are dropped.
func (r *ClickRecorder) Record(ctx context.Context, click domain.Click) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		zap.L().Warn("Click dropped, recorder is shutting down",
			zap.String("productId", click.ProductID),
		)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		// The request may finish first; keep its values, drop its deadline.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.record(recordCtx, click); err != nil {
			zap.L().Warn("Failed to record click",
				zap.String("productId", click.ProductID),
				zap.String("source", click.Source),
				zap.Error(err),
			)
		}
	}()
}

func (r *ClickRecorder) record(ctx context.Context, click domain.Click) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("click sink panicked: %v", rec)
		}
	}()

	return r.sink.RecordClick(ctx, click)
}

// Wait stops accepting clicks and blocks until every in-flight click has
// been handled.
func (r *ClickRecorder) Wait() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
}
