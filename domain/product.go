package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const ProductCollection = "affiliateproduct"

func init() {
	// Prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// SearchFields are the product fields a free-text search looks at.
var SearchFields = []string{"title", "description", "tags"}

// Product is the create payload for an affiliate product.
type Product struct {
	Title        string           `json:"title" validate:"required"`
	Description  *string          `json:"description,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
	Category     string           `json:"category,omitempty"`
	AffiliateURL string           `json:"affiliate_url" validate:"required,http_url"`
	ImageURL     *string          `json:"image_url,omitempty" validate:"omitempty,http_url"`
	Tags         []string         `json:"tags"`
	Featured     bool             `json:"featured"`
	Rating       *float64         `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// Normalize fills defaults before the product is stored.
func (p *Product) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// ProductRecord is a stored product as returned to clients.
type ProductRecord struct {
	ID string `json:"id"`
	Product
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
