package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"affiliate/pkg/httperror"
	"context"
)

type RedirectHandler struct {
	repository Repository
	recorder   *ClickRecorder
}

func NewRedirectHandler(repository Repository, recorder *ClickRecorder) *RedirectHandler {
	return &RedirectHandler{
		repository: repository,
		recorder:   recorder,
	}
}

type RedirectRequest struct {
	ProductID string `params:"product_id"`
	Source    string `query:"source"`
}

type RedirectResponse struct {
	Location string
}

func (r RedirectResponse) RedirectLocation() string {
	return r.Location
}

func (h RedirectHandler) Handle(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	doc, err := h.repository.FindOne(ctx, domain.ProductCollection, docstore.ByID(req.ProductID))
	if err != nil {
		return nil, storeError("redirect.lookup_failed", "Failed to look up product", err)
	}
	if doc == nil {
		return nil, productNotFound(req.ProductID)
	}

	var product domain.ProductRecord
	if err := docstore.Decode(doc, &product); err != nil || product.AffiliateURL == "" {
		return nil, httperror.InternalServerError(
			"redirect.invalid_product",
			"Product has no affiliate URL",
			nil,
		).WithCause(err)
	}

	source := req.Source
	if source == "" {
		source = domain.DefaultClickSource
	}

	if h.recorder != nil {
		h.recorder.Record(ctx, domain.Click{
			ProductID: req.ProductID,
			Source:    source,
		})
	}

	return &RedirectResponse{Location: product.AffiliateURL}, nil
}

func productNotFound(id string) error {
	return httperror.NotFound(
		"redirect.product_not_found",
		"Product not found",
		map[string]string{"product_id": id},
	)
}
