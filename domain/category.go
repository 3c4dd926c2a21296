package domain

import "time"

const CategoryCollection = "category"

// Category is the create payload for a category.
type Category struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,slug"`
}

// CategoryRecord is a stored category as returned to clients.
type CategoryRecord struct {
	ID string `json:"id"`
	Category
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
