package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/abgdnv/productapi/internal/errors"
	"github.com/google/uuid"
)

// maxIDAttempts bounds how often Create asks the generator for an unused ID.
const maxIDAttempts = 5

// IDGenerator returns a new product ID.
type IDGenerator func() string

// UUIDGenerator generates random (v4) UUID strings.
func UUIDGenerator() string {
	return uuid.NewString()
}

// inMemory implements ProductStore using an ordered slice guarded by one lock.
type inMemory struct {
	mu       sync.RWMutex
	products []Product
	newID    IDGenerator
}

// NewInMemoryStore creates a new ProductStore holding a copy of seed.
// A nil generator falls back to UUIDGenerator.
func NewInMemoryStore(newID IDGenerator, seed ...Product) ProductStore {
	if newID == nil {
		newID = UUIDGenerator
	}
	products := make([]Product, 0, len(seed))
	for _, p := range seed {
		products = append(products, p.clone())
	}
	return &inMemory{
		products: products,
		newID:    newID,
	}
}

// FindByID retrieves a product by its ID.
func (s *inMemory) FindByID(_ context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.ErrProductNotFound
	}
	p := s.products[i].clone()
	return &p, nil
}

// FindAll retrieves all products in insertion order.
func (s *inMemory) FindAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, len(s.products))
	for i, p := range s.products {
		list[i] = p.clone()
	}
	return list, nil
}

// Create creates a new product and returns it.
func (s *inMemory) Create(_ context.Context, fields Fields) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.unusedID()
	if err != nil {
		return nil, err
	}
	product := Product{ID: id}
	fields.applyTo(&product)
	s.products = append(s.products, product)

	created := product.clone()
	return &created, nil
}

// Update merges fields onto the product with the given ID.
func (s *inMemory) Update(_ context.Context, id string, fields Fields) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.ErrProductNotFound
	}
	fields.applyTo(&s.products[i])

	updated := s.products[i].clone()
	return &updated, nil
}

// DeleteByID deletes a product by its ID.
func (s *inMemory) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.ErrProductNotFound
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

// indexOf returns the position of id or -1. Callers must hold the lock.
func (s *inMemory) indexOf(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// unusedID asks the generator for an ID not present in the store. Callers must hold the write lock.
func (s *inMemory) unusedID() (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", maxIDAttempts, errors.ErrIDCollision)
}
