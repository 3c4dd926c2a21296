package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"affiliate/pkg/httperror"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type CreateCategoryHandler struct {
	repository     Repository
	eventPublisher events.Publisher
	serviceName    string
}

type CreateCategoryRequest = domain.Category

func NewCreateCategoryHandler(repository Repository, eventPublisher events.Publisher, serviceName string) *CreateCategoryHandler {
	return &CreateCategoryHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
		serviceName:    serviceName,
	}
}

func (h CreateCategoryHandler) Handle(ctx context.Context, req *CreateCategoryRequest) (*CreatedResponse, error) {
	if err := domain.Validator().Struct(req); err != nil {
		return nil, validationError("category.create", err)
	}

	existing, err := h.repository.FindOne(ctx, domain.CategoryCollection, docstore.ByField("slug", req.Slug))
	if err != nil {
		return nil, storeError("category.create.lookup_failed", "Failed to check category slug", err)
	}
	if existing != nil {
		return nil, duplicateSlug(req.Slug)
	}

	id, err := h.repository.CreateDocument(ctx, domain.CategoryCollection, req)
	if err != nil {
		// A concurrent create can pass the check above; the unique index
		// catches it.
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, duplicateSlug(req.Slug)
		}
		return nil, storeError("category.create.create_failed", "An error occurred while creating the category", err)
	}

	h.publishEvent(ctx, id, req)

	return &CreatedResponse{ID: id}, nil
}

func (h CreateCategoryHandler) publishEvent(ctx context.Context, id string, req *CreateCategoryRequest) {
	payload := events.CategoryCreatedPayload{
		ID:        id,
		Name:      req.Name,
		Slug:      req.Slug,
		CreatedAt: time.Now().UTC(),
	}

	err := events.PublishV1(ctx, h.eventPublisher, h.serviceName, events.CatalogExchange, events.CategoryCreatedEvent, payload)
	if err != nil {
		zap.L().Error("Failed to publish category.created event",
			zap.String("categoryId", id),
			zap.Error(err),
		)
	}
}

func duplicateSlug(slug string) error {
	return httperror.BadRequest(
		"category.create.duplicate_slug",
		"Category slug already exists",
		map[string]string{"slug": slug},
	)
}
