package store

import (
	"context"
)

// Store is the persistence contract the document engine consumes. Rows come
// back as immutable snapshots; association loading is requested through the
// include list of association aliases.
type Store interface {
	// FindByID fetches one row by primary key, loading the given
	// association aliases onto it. Returns ErrNotFound when absent.
	FindByID(ctx context.Context, typeName, id string, include []string) (*Row, error)

	// FindAll fetches every row matching the where clause, loading the
	// given association aliases onto each.
	FindAll(ctx context.Context, typeName string, where *WhereClause, include []string) ([]*Row, error)

	// Create inserts a row from an attribute map and returns its snapshot
	Create(ctx context.Context, typeName string, attrs map[string]any) (*Row, error)

	// Update applies an attribute map to an existing row and returns the
	// fresh snapshot
	Update(ctx context.Context, typeName string, row *Row, attrs map[string]any) (*Row, error)

	// Delete removes a row
	Delete(ctx context.Context, typeName string, row *Row) error

	// UpdateForeignKey sets a foreign key column on the row with the given
	// primary key. A nonexistent id is not an error; it affects zero rows.
	UpdateForeignKey(ctx context.Context, typeName, id, fkField string, value any) error

	// ClearForeignKey nulls a foreign key column on every row currently
	// holding the given value.
	ClearForeignKey(ctx context.Context, typeName, fkField string, parentID any) error
}
