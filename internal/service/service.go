// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	producterrors "github.com/abgdnv/productapi/internal/errors"
	"github.com/abgdnv/productapi/internal/store"
	"github.com/abgdnv/productapi/pkg/messaging"
	"github.com/abgdnv/productapi/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10

	defaultPublishTimeout = 2 * time.Second
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// List returns one page of products, optionally filtered by category.
	// Total counts the filtered set, not the page.
	List(ctx context.Context, query ListQuery) (*ProductPage, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// Search returns the products whose name contains q, ignoring case.
	// Returns a MissingParameter error if q is empty.
	Search(ctx context.Context, q string) ([]ProductDto, error)

	// Stats returns the number of products per category.
	Stats(ctx context.Context) (map[string]int, error)

	// Create adds a new product to the system.
	Create(ctx context.Context, input ProductInput) (*ProductDto, error)

	// Update merges input onto an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, input ProductInput) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository       store.ProductStore
	publisher        messaging.Publisher
	publishTimeout   time.Duration
	logger           *slog.Logger
	mutationsCounter metric.Int64Counter
}

// NewService creates a new instance of ProductService.
// Events go to publisher, each bounded by publishTimeout.
func NewService(repo store.ProductStore, publisher messaging.Publisher, publishTimeout time.Duration, logger *slog.Logger) *Service {
	meter := otel.Meter("product-service")
	mutationsCounter, err := meter.Int64Counter("product_mutations", metric.WithDescription("Total number of product mutations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create product_mutations counter: %v", err))
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &Service{
		repository:       repo,
		publisher:        publisher,
		publishTimeout:   publishTimeout,
		logger:           logger.With("component", "service"),
		mutationsCounter: mutationsCounter,
	}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	InStock     *bool   `json:"inStock,omitempty"`
}

// ProductInput is the body accepted by create and update.
type ProductInput struct {
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description" validate:"required"`
	Price       *float64 `json:"price"       validate:"required"`
	Category    string   `json:"category"    validate:"required"`
	InStock     *bool    `json:"inStock"`
}

// ListQuery selects a page of products. An empty Category matches every product.
type ListQuery struct {
	Category string
	Page     int
	Limit    int
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	Total    int          `json:"total"`
	Products []ProductDto `json:"products"`
}

// List filters by category, then cuts the requested page out of the result.
func (s *Service) List(ctx context.Context, query ListQuery) (*ProductPage, error) {
	if query.Page < 1 || query.Limit < 1 {
		return nil, producterrors.Validation("page and limit must be positive integers", nil)
	}
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	filtered := products
	if query.Category != "" {
		filtered = make([]store.Product, 0, len(products))
		for _, p := range products {
			if p.Category == query.Category {
				filtered = append(filtered, p)
			}
		}
	}

	page := &ProductPage{
		Page:     query.Page,
		Limit:    query.Limit,
		Total:    len(filtered),
		Products: []ProductDto{},
	}
	start := int64(query.Page-1) * int64(query.Limit)
	if start >= int64(len(filtered)) {
		return page, nil
	}
	end := min(start+int64(query.Limit), int64(len(filtered)))
	page.Products = toDtos(filtered[start:end])
	return page, nil
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id string) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}

	return toDto(product), nil
}

// Search matches q against product names, case-insensitively.
func (s *Service) Search(ctx context.Context, q string) ([]ProductDto, error) {
	if q == "" {
		return nil, producterrors.MissingParameter("q")
	}
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	needle := strings.ToLower(q)
	found := make([]ProductDto, 0)
	for i := range products {
		if strings.Contains(strings.ToLower(products[i].Name), needle) {
			found = append(found, *toDto(&products[i]))
		}
	}
	return found, nil
}

// Stats counts products per category over the current collection.
func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	stats := make(map[string]int)
	for _, p := range products {
		stats[p.Category]++
	}
	return stats, nil
}

// Create creates a new product and returns it as a ProductDto.
// Returns an error if the product cannot be created.
func (s *Service) Create(ctx context.Context, input ProductInput) (*ProductDto, error) {
	created, err := s.repository.Create(ctx, toFields(input))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.mutated(ctx, events.ProductCreated, created)
	return toDto(created), nil
}

// Update merges input onto the product and returns the result as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) Update(ctx context.Context, id string, input ProductInput) (*ProductDto, error) {
	updated, err := s.repository.Update(ctx, id, toFields(input))
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}

	s.mutated(ctx, events.ProductUpdated, updated)
	return toDto(updated), nil
}

// DeleteByID deletes a product by its ID.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}

	s.mutated(ctx, events.ProductDeleted, &store.Product{ID: id})
	return nil
}

// mutated counts the mutation and publishes its event.
// The mutation already happened, so a publish failure is only logged.
func (s *Service) mutated(ctx context.Context, eventType events.ProductEventType, product *store.Product) {
	s.mutationsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operationName(eventType))))

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	event := events.ProductEvent{
		Type:       eventType,
		Product:    toEventProduct(product),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(publishCtx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish product event", "subject", event.Subject(), "ID", product.ID, "error", err)
	}
}

func operationName(eventType events.ProductEventType) string {
	switch eventType {
	case events.ProductCreated:
		return "create"
	case events.ProductUpdated:
		return "update"
	default:
		return "delete"
	}
}

func toFields(input ProductInput) store.Fields {
	return store.Fields{
		Name:        &input.Name,
		Description: &input.Description,
		Price:       input.Price,
		Category:    &input.Category,
		InStock:     input.InStock,
	}
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		InStock:     product.InStock,
	}
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}

func toEventProduct(product *store.Product) events.Product {
	return events.Product{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		InStock:     product.InStock,
	}
}
