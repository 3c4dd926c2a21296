package app

import (
	"affiliate/domain"
	"context"
)

type RecordClickHandler struct {
	repository Repository
}

type RecordClickRequest = domain.Click

func NewRecordClickHandler(repository Repository) *RecordClickHandler {
	return &RecordClickHandler{
		repository: repository,
	}
}

func (h RecordClickHandler) Handle(ctx context.Context, req *RecordClickRequest) (*CreatedResponse, error) {
	if err := domain.Validator().Struct(req); err != nil {
		return nil, validationError("click.create", err)
	}

	id, err := h.repository.CreateDocument(ctx, domain.ClickCollection, req)
	if err != nil {
		return nil, storeError("click.create.create_failed", "An error occurred while recording the click", err)
	}

	return &CreatedResponse{ID: id}, nil
}
