package domain

const ClickCollection = "click"

// DefaultClickSource is recorded when a redirect carries no source.
const DefaultClickSource = "direct"

// Click is a logged visit of a product's affiliate link. ProductID is not
// checked against existing products.
type Click struct {
	ProductID string `json:"product_id" validate:"required"`
	Source    string `json:"source,omitempty"`
}
