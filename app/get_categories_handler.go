package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"context"
	"sort"
)

type GetCategoriesHandler struct {
	repository Repository
}

func NewGetCategoriesHandler(repository Repository) *GetCategoriesHandler {
	return &GetCategoriesHandler{
		repository: repository,
	}
}

type GetCategoriesRequest struct{}

type GetCategoriesResponse []domain.CategoryRecord

func (h GetCategoriesHandler) Handle(ctx context.Context, _ *GetCategoriesRequest) (*GetCategoriesResponse, error) {
	docs, err := h.repository.GetDocuments(ctx, domain.CategoryCollection, docstore.Filter{}, 0)
	if err != nil {
		return nil, storeError("category.index.failed", "Failed to retrieve categories", err)
	}

	categories := make(GetCategoriesResponse, 0, len(docs))
	for _, doc := range docs {
		var category domain.CategoryRecord
		if err := docstore.Decode(doc, &category); err != nil {
			return nil, storeError("category.index.decode_failed", "Failed to read categories", err)
		}
		categories = append(categories, category)
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})

	return &categories, nil
}
