package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/productapi/pkg/messaging"
)

// ProductEventType names what happened to a product.
type ProductEventType string

const (
	ProductCreated ProductEventType = "created"
	ProductUpdated ProductEventType = "updated"
	ProductDeleted ProductEventType = "deleted"
)

// Product is the product snapshot carried by an event.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Category    string  `json:"category,omitempty"`
	InStock     *bool   `json:"inStock,omitempty"`
}

type ProductEvent struct {
	Type       ProductEventType `json:"type"`
	Product    Product          `json:"product"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func (e ProductEvent) Subject() string {
	switch e.Type {
	case ProductCreated:
		return messaging.ProductsCreatedSubject
	case ProductUpdated:
		return messaging.ProductsUpdatedSubject
	default:
		return messaging.ProductsDeletedSubject
	}
}

func (e ProductEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
