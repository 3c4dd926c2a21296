package app

import (
	"affiliate/pkg/docstore"
	"context"
)

// Repository is the document store as seen by the handlers.
// *docstore.Store implements it.
type Repository interface {
	Configured() bool
	CreateDocument(ctx context.Context, collection string, payload any) (string, error)
	GetDocuments(ctx context.Context, collection string, filter docstore.Filter, limit int) ([]docstore.Document, error)
	FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error)
	ListCollectionNames(ctx context.Context) ([]string, error)
}

// CreatedResponse is returned by every create endpoint.
type CreatedResponse struct {
	ID string `json:"id"`
}

func (CreatedResponse) StatusCode() int {
	return 201
}
