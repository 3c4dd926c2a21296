package consumers

import (
	"affiliate/app"
	"affiliate/domain"
	"affiliate/pkg/events"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var ErrMalformedPayload = errors.New("malformed payload")

// clickDocument is a click as the worker stores it, with the time the
// redirect happened rather than the time the worker caught up.
type clickDocument struct {
	domain.Click
	CreatedAt time.Time `json:"created_at"`
}

// ClickEventHandler persists click.recorded events published by the
// redirect path.
type ClickEventHandler struct {
	repository app.Repository
}

func NewClickEventHandler(repository app.Repository) *ClickEventHandler {
	return &ClickEventHandler{
		repository: repository,
	}
}

func (h *ClickEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Event {
	case events.ClickRecordedEvent:
		return h.handleClickRecorded(ctx, event)
	default:
		zap.L().Warn("Unknown click event type", zap.String("event", event.Event))
		return nil
	}
}

func (h *ClickEventHandler) handleClickRecorded(ctx context.Context, event *events.Event) error {
	var payload events.ClickRecordedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if payload.ProductID == "" {
		return fmt.Errorf("%w: productId missing", ErrMalformedPayload)
	}

	source := payload.Source
	if source == "" {
		source = domain.DefaultClickSource
	}

	clickedAt := payload.ClickedAt
	if clickedAt.IsZero() {
		clickedAt = event.Timestamp
	}

	id, err := h.repository.CreateDocument(ctx, domain.ClickCollection, clickDocument{
		Click:     domain.Click{ProductID: payload.ProductID, Source: source},
		CreatedAt: clickedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to store click: %w", err)
	}

	zap.L().Info("Click stored",
		zap.String("clickId", id),
		zap.String("productId", payload.ProductID),
		zap.String("source", source),
		zap.String("traceId", event.TraceID),
	)

	return nil
}
