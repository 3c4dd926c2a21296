package app

import "context"

type RootHandler struct{}

type RootRequest struct{}

type RootResponse struct {
	Message string `json:"message"`
}

func (RootHandler) Handle(context.Context, *RootRequest) (*RootResponse, error) {
	return &RootResponse{Message: "Affiliate Catalog API is running"}, nil
}
