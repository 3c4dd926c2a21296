package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"context"
	"sort"
)

type GetProductsHandler struct {
	repository Repository
}

func NewGetProductsHandler(repository Repository) *GetProductsHandler {
	return &GetProductsHandler{
		repository: repository,
	}
}

type GetProductsRequest struct {
	Category string `query:"category"`
	Search   string `query:"search"`
	Featured *bool  `query:"featured"`
	Limit    *int   `query:"limit" validate:"omitempty,min=1,max=100"`
}

type GetProductsResponse []domain.ProductRecord

func (h GetProductsHandler) Handle(ctx context.Context, req *GetProductsRequest) (*GetProductsResponse, error) {
	if err := domain.Validator().Struct(req); err != nil {
		return nil, validationError("product.index", err)
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	docs, err := h.repository.GetDocuments(ctx, domain.ProductCollection, productFilter(req), limit)
	if err != nil {
		return nil, storeError("product.index.failed", "Failed to retrieve products", err)
	}

	products := make(GetProductsResponse, 0, len(docs))
	for _, doc := range docs {
		var product domain.ProductRecord
		if err := docstore.Decode(doc, &product); err != nil {
			return nil, storeError("product.index.decode_failed", "Failed to read products", err)
		}
		products = append(products, product)
	}

	sortProducts(products)

	return &products, nil
}

func productFilter(req *GetProductsRequest) docstore.Filter {
	filter := docstore.Filter{Equals: map[string]any{}}

	if req.Category != "" {
		filter.Equals["category"] = req.Category
	}

	if req.Featured != nil {
		filter.Equals["featured"] = *req.Featured
	}

	if req.Search != "" {
		filter.Search = &docstore.Search{
			Term:   req.Search,
			Fields: domain.SearchFields,
		}
	}

	return filter
}

// sortProducts puts featured products first, then orders by title.
func sortProducts(products []domain.ProductRecord) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].Featured != products[j].Featured {
			return products[i].Featured
		}
		return products[i].Title < products[j].Title
	})
}
