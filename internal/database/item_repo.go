package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// itemRepo implements ItemRepository.
type itemRepo struct {
	q *pgxpool.Pool
}

// NewItemRepo creates a new item repository.
func NewItemRepo(db *DB) ItemRepository {
	return &itemRepo{q: db.pool}
}

// Create creates a new item.
func (r *itemRepo) Create(ctx context.Context, item *Item) error {
	err := r.q.QueryRow(ctx, ItemInsert, item.Name, item.Description).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", WrapDBError(err))
	}
	return nil
}

// Get retrieves an item by ID.
func (r *itemRepo) Get(ctx context.Context, id int64) (*Item, error) {
	item := &Item{}
	err := r.q.QueryRow(ctx, ItemGetByID, id).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// Update updates an existing item.
func (r *itemRepo) Update(ctx context.Context, item *Item) error {
	err := r.q.QueryRow(ctx, ItemUpdate, item.ID, item.Name, item.Description).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update item: %w", WrapDBError(err))
	}
	return nil
}

// Delete deletes an item by ID.
func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, ItemDelete, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns items with pagination.
func (r *itemRepo) List(ctx context.Context, page Pagination) ([]Item, error) {
	page = page.Normalize()
	rows, err := r.q.Query(ctx, ItemList, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// Count returns the total number of items.
func (r *itemRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, ItemCount).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// scanItems scans rows into a slice of items. The result is never nil.
func scanItems(rows pgx.Rows) ([]Item, error) {
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}
