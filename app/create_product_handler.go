package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"affiliate/pkg/httperror"
	"context"
	"time"

	"go.uber.org/zap"
)

type CreateProductHandler struct {
	repository     Repository
	eventPublisher events.Publisher
	serviceName    string
}

type CreateProductRequest = domain.Product

func NewCreateProductHandler(repository Repository, eventPublisher events.Publisher, serviceName string) *CreateProductHandler {
	return &CreateProductHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
		serviceName:    serviceName,
	}
}

func (h CreateProductHandler) Handle(ctx context.Context, req *CreateProductRequest) (*CreatedResponse, error) {
	if err := domain.Validator().Struct(req); err != nil {
		return nil, validationError("product.create", err)
	}

	if req.Category != "" {
		category, err := h.repository.FindOne(ctx, domain.CategoryCollection, docstore.ByField("slug", req.Category))
		if err != nil {
			return nil, storeError("product.create.category_lookup_failed", "Failed to check product category", err)
		}
		if category == nil {
			return nil, httperror.BadRequest(
				"product.create.category_not_found",
				"Category not found",
				map[string]string{"category": req.Category},
			)
		}
	}

	req.Normalize()

	id, err := h.repository.CreateDocument(ctx, domain.ProductCollection, req)
	if err != nil {
		return nil, storeError("product.create.create_failed", "An error occurred while creating the product", err)
	}

	h.publishEvent(ctx, id, req)

	return &CreatedResponse{ID: id}, nil
}

func (h CreateProductHandler) publishEvent(ctx context.Context, id string, req *CreateProductRequest) {
	payload := events.ProductCreatedPayload{
		ID:           id,
		Title:        req.Title,
		Category:     req.Category,
		AffiliateURL: req.AffiliateURL,
		Price:        req.Price,
		Featured:     req.Featured,
		CreatedAt:    time.Now().UTC(),
	}

	err := events.PublishV1(ctx, h.eventPublisher, h.serviceName, events.CatalogExchange, events.ProductCreatedEvent, payload)
	if err != nil {
		zap.L().Error("Failed to publish product.created event",
			zap.String("productId", id),
			zap.Error(err),
		)
	}
}
