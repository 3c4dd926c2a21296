package domain

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func failedFields(t *testing.T, err error) map[string]string {
	t.Helper()
	out := map[string]string{}
	if err == nil {
		return out
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func TestCategoryValidation(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		want     map[string]string
	}{
		{"valid", Category{Name: "Espresso Machines", Slug: "espresso"}, map[string]string{}},
		{"hyphenated slug", Category{Name: "Pour Over", Slug: "pour-over-2"}, map[string]string{}},
		{"missing name", Category{Slug: "espresso"}, map[string]string{"name": "required"}},
		{"missing slug", Category{Name: "Espresso"}, map[string]string{"slug": "required"}},
		{"uppercase slug", Category{Name: "Espresso", Slug: "Espresso"}, map[string]string{"slug": "slug"}},
		{"slug with space", Category{Name: "Espresso", Slug: "es presso"}, map[string]string{"slug": "slug"}},
		{"trailing hyphen", Category{Name: "Espresso", Slug: "espresso-"}, map[string]string{"slug": "slug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := failedFields(t, Validator().Struct(tt.category))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for field, tag := range tt.want {
				if got[field] != tag {
					t.Fatalf("field %s: expected %s, got %v", field, tag, got)
				}
			}
		})
	}
}

func TestProductValidation(t *testing.T) {
	valid := func() Product {
		return Product{Title: "Grinder", AffiliateURL: "https://example.com/x"}
	}

	tests := []struct {
		name   string
		mutate func(p *Product)
		want   map[string]string
	}{
		{"valid minimal", func(p *Product) {}, map[string]string{}},
		{"valid full", func(p *Product) {
			p.Description = ptr("Conical burrs")
			p.Price = ptr(decimal.RequireFromString("129.99"))
			p.Category = "grinders"
			p.ImageURL = ptr("http://cdn.example.com/g.png")
			p.Tags = []string{"burr"}
			p.Featured = true
			p.Rating = ptr(4.5)
		}, map[string]string{}},
		{"zero price and rating", func(p *Product) {
			p.Price = ptr(decimal.Zero)
			p.Rating = ptr(0.0)
		}, map[string]string{}},
		{"category is not format checked", func(p *Product) { p.Category = "Espresso Machines" }, map[string]string{}},
		{"missing title", func(p *Product) { p.Title = "" }, map[string]string{"title": "required"}},
		{"missing affiliate url", func(p *Product) { p.AffiliateURL = "" }, map[string]string{"affiliate_url": "required"}},
		{"bad affiliate url", func(p *Product) { p.AffiliateURL = "not a url" }, map[string]string{"affiliate_url": "http_url"}},
		{"non http affiliate url", func(p *Product) { p.AffiliateURL = "ftp://example.com/x" }, map[string]string{"affiliate_url": "http_url"}},
		{"bad image url", func(p *Product) { p.ImageURL = ptr("nope") }, map[string]string{"image_url": "http_url"}},
		{"negative price", func(p *Product) { p.Price = ptr(decimal.RequireFromString("-1")) }, map[string]string{"price": "gte"}},
		{"rating too high", func(p *Product) { p.Rating = ptr(5.1) }, map[string]string{"rating": "lte"}},
		{"negative rating", func(p *Product) { p.Rating = ptr(-0.5) }, map[string]string{"rating": "gte"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			got := failedFields(t, Validator().Struct(p))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for field, tag := range tt.want {
				if got[field] != tag {
					t.Fatalf("field %s: expected %s, got %v", field, tag, got)
				}
			}
		})
	}
}

func TestClickValidation(t *testing.T) {
	if err := Validator().Struct(Click{ProductID: "abc"}); err != nil {
		t.Fatalf("expected valid click, got %v", err)
	}
	got := failedFields(t, Validator().Struct(Click{Source: "hero"}))
	if got["product_id"] != "required" {
		t.Fatalf("expected product_id required, got %v", got)
	}
}
