package database

import (
	"context"
)

// ItemRepository defines the interface for item data operations.
type ItemRepository interface {
	// Create creates a new item and fills in its generated fields.
	Create(ctx context.Context, item *Item) error

	// Get retrieves an item by ID.
	Get(ctx context.Context, id int64) (*Item, error)

	// Update replaces the name and description of an existing item.
	Update(ctx context.Context, item *Item) error

	// Delete deletes an item by ID.
	Delete(ctx context.Context, id int64) error

	// List returns items ordered by ID.
	List(ctx context.Context, page Pagination) ([]Item, error)

	// Count returns the total number of items.
	Count(ctx context.Context) (int64, error)
}
