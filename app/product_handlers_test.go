package app

import (
	"affiliate/domain"
	"affiliate/pkg/docstore"
	"context"
	"net/http"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateProduct(t *testing.T) {
	repo := newRepository(t)
	publisher := &recordingPublisher{}
	createCategory(t, repo, "Grinders", "grinders")
	h := NewCreateProductHandler(repo, publisher, "affiliate")

	res, err := h.Handle(context.Background(), &CreateProductRequest{
		Title:        "Burr Grinder",
		Price:        ptr(decimal.RequireFromString("129.99")),
		Category:     "grinders",
		AffiliateURL: "https://shop.example.com/grinder?ref=abc",
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := repo.FindOne(context.Background(), domain.ProductCollection, docstore.ByID(res.ID))
	if err != nil || doc == nil {
		t.Fatalf("expected stored product, got %v %v", doc, err)
	}
	if tags, ok := doc["tags"].([]any); !ok || len(tags) != 0 {
		t.Fatalf("expected empty tags list, got %#v", doc["tags"])
	}
	if doc["featured"] != false {
		t.Fatalf("expected featured false, got %#v", doc["featured"])
	}

	if got := publisher.names(); !slices.Equal(got, []string{"product.created"}) {
		t.Fatalf("expected one product.created event, got %v", got)
	}
}

func TestCreateProductCategoryNotFound(t *testing.T) {
	repo := newRepository(t)
	h := NewCreateProductHandler(repo, nil, "affiliate")

	_, err := h.Handle(context.Background(), &CreateProductRequest{
		Title:        "Burr Grinder",
		Category:     "grinders",
		AffiliateURL: "https://shop.example.com/grinder",
	})
	requireHTTPError(t, err, http.StatusBadRequest, "product.create.category_not_found")

	docs, err := repo.GetDocuments(context.Background(), domain.ProductCollection, docstore.Filter{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(docs))
	}
}

func TestCreateProductUnknownCategoryAnyFormat(t *testing.T) {
	h := NewCreateProductHandler(newRepository(t), nil, "affiliate")

	for _, category := range []string{"espresso", "Espresso Machines"} {
		_, err := h.Handle(context.Background(), &CreateProductRequest{
			Title:        "Burr Grinder",
			Category:     category,
			AffiliateURL: "https://shop.example.com/grinder",
		})
		requireHTTPError(t, err, http.StatusBadRequest, "product.create.category_not_found")
	}
}

func TestCreateProductWithoutCategory(t *testing.T) {
	repo := newRepository(t)
	createProduct(t, repo, domain.Product{Title: "Kettle", AffiliateURL: "http://example.com/kettle"})
}

func TestCreateProductValidation(t *testing.T) {
	h := NewCreateProductHandler(newRepository(t), nil, "affiliate")

	_, err := h.Handle(context.Background(), &CreateProductRequest{
		Title:        "Burr Grinder",
		AffiliateURL: "not a url",
		Rating:       ptr(7.0),
	})
	httpErr := requireHTTPError(t, err, http.StatusUnprocessableEntity, "product.create.validation_failed")

	var fields []string
	for _, fe := range httpErr.Details.([]FieldError) {
		fields = append(fields, fe.Field)
	}
	slices.Sort(fields)
	if !slices.Equal(fields, []string{"affiliate_url", "rating"}) {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func seedProducts(t *testing.T, repo Repository) {
	t.Helper()
	createCategory(t, repo, "Coffee", "coffee")
	createCategory(t, repo, "Tea", "tea")

	createProduct(t, repo, domain.Product{Title: "Light Roast", Category: "coffee", AffiliateURL: "https://example.com/1"})
	createProduct(t, repo, domain.Product{Title: "Dark Roast", Category: "coffee", AffiliateURL: "https://example.com/2", Featured: true})
	createProduct(t, repo, domain.Product{Title: "Green Tea", Category: "tea", AffiliateURL: "https://example.com/3", Tags: []string{"DARK-leaf"}})
	createProduct(t, repo, domain.Product{Title: "Chai", Category: "tea", AffiliateURL: "https://example.com/4", Description: ptr("Spiced and dark")})
	createProduct(t, repo, domain.Product{Title: "Assam", Category: "tea", AffiliateURL: "https://example.com/5", Featured: true})
}

func titles(res *GetProductsResponse) []string {
	out := []string{}
	for _, p := range *res {
		out = append(out, p.Title)
	}
	return out
}

func TestGetProducts(t *testing.T) {
	repo := newRepository(t)
	seedProducts(t, repo)
	h := NewGetProductsHandler(repo)

	tests := []struct {
		name string
		req  GetProductsRequest
		want []string
	}{
		{"all featured first", GetProductsRequest{}, []string{"Assam", "Dark Roast", "Chai", "Green Tea", "Light Roast"}},
		{"category", GetProductsRequest{Category: "tea"}, []string{"Assam", "Chai", "Green Tea"}},
		{"featured only", GetProductsRequest{Featured: ptr(true)}, []string{"Assam", "Dark Roast"}},
		{"not featured", GetProductsRequest{Featured: ptr(false)}, []string{"Chai", "Green Tea", "Light Roast"}},
		{"search title description tags", GetProductsRequest{Search: "dark"}, []string{"Dark Roast", "Chai", "Green Tea"}},
		{"search and category", GetProductsRequest{Search: "DARK", Category: "tea"}, []string{"Chai", "Green Tea"}},
		{"unknown category", GetProductsRequest{Category: "juice"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Handle(context.Background(), &tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if got := titles(res); !slices.Equal(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetProductsLimit(t *testing.T) {
	repo := newRepository(t)
	seedProducts(t, repo)
	h := NewGetProductsHandler(repo)

	res, err := h.Handle(context.Background(), &GetProductsRequest{Limit: ptr(2)})
	if err != nil {
		t.Fatal(err)
	}
	if len(*res) != 2 {
		t.Fatalf("expected 2 products, got %d", len(*res))
	}

	for _, limit := range []int{0, -1, 101} {
		_, err := h.Handle(context.Background(), &GetProductsRequest{Limit: ptr(limit)})
		requireHTTPError(t, err, http.StatusUnprocessableEntity, "product.index.validation_failed")
	}

	if _, err := h.Handle(context.Background(), &GetProductsRequest{Limit: ptr(100)}); err != nil {
		t.Fatalf("limit 100 should be accepted: %v", err)
	}
}

func TestSortProductsIsStable(t *testing.T) {
	products := []domain.ProductRecord{
		{ID: "1", Product: domain.Product{Title: "b"}},
		{ID: "2", Product: domain.Product{Title: "a"}},
		{ID: "3", Product: domain.Product{Title: "b", Featured: true}},
		{ID: "4", Product: domain.Product{Title: "b"}},
	}

	sortProducts(products)

	var ids []string
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []string{"3", "2", "1", "4"}) {
		t.Fatalf("unexpected order %v", ids)
	}
}
