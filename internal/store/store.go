// Package store provides an interface for product storage operations.
package store

import "context"

// ProductStore is an interface for product storage operations.
// Implementations preserve insertion order and are safe for concurrent use.
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindAll returns all products in insertion order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// Create assigns a fresh ID, merges the given fields and appends the product.
	Create(ctx context.Context, fields Fields) (*Product, error)

	// Update shallow-merges fields onto an existing product, keeping its ID and position.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, fields Fields) (*Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// Product represents a product entity in the store.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Category    string
	InStock     *bool // nil when never set
}

// Fields is a partial product. Only non-nil values take part in a merge.
type Fields struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	InStock     *bool
}

// applyTo overwrites the fields of p that are present in f.
func (f Fields) applyTo(p *Product) {
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Description != nil {
		p.Description = *f.Description
	}
	if f.Price != nil {
		p.Price = *f.Price
	}
	if f.Category != nil {
		p.Category = *f.Category
	}
	if f.InStock != nil {
		inStock := *f.InStock
		p.InStock = &inStock
	}
}

// clone returns a copy of p that shares no pointers with it.
func (p Product) clone() Product {
	if p.InStock != nil {
		inStock := *p.InStock
		p.InStock = &inStock
	}
	return p
}
