package database

// Item queries
const (
	// ItemInsert inserts a new item.
	ItemInsert = `
		INSERT INTO items (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	// ItemGetByID retrieves an item by ID.
	ItemGetByID = `
		SELECT id, name, description, created_at, updated_at
		FROM items
		WHERE id = $1`

	// ItemUpdate replaces the mutable fields of an item.
	ItemUpdate = `
		UPDATE items SET
			name = $2,
			description = $3,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	// ItemDelete deletes an item by ID.
	ItemDelete = `DELETE FROM items WHERE id = $1`

	// ItemList lists items ordered by ID.
	ItemList = `
		SELECT id, name, description, created_at, updated_at
		FROM items
		ORDER BY id
		LIMIT $1 OFFSET $2`

	// ItemCount counts all items.
	ItemCount = `SELECT COUNT(*) FROM items`
)
