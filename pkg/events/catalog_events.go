package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CatalogExchange = "affiliate.catalog"
	ClickExchange   = "affiliate.click"
)

// Event names
const (
	CategoryCreatedEvent = "category.created"
	ProductCreatedEvent  = "product.created"
	ClickRecordedEvent   = "click.recorded"
)

// Event versions
const (
	EventVersionV1 = "v1"
)

type CategoryCreatedPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProductCreatedPayload struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Category     string           `json:"category,omitempty"`
	AffiliateURL string           `json:"affiliateUrl"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Featured     bool             `json:"featured"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ClickRecordedPayload carries a redirect click to the worker, which
// persists it.
type ClickRecordedPayload struct {
	ProductID string    `json:"productId"`
	Source    string    `json:"source"`
	ClickedAt time.Time `json:"clickedAt"`
}
