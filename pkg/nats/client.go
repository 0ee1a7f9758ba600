// Package nats connects the service to a NATS JetStream broker.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ProductsStream is the JetStream stream that stores product events.
const ProductsStream = "PRODUCTS"

func NewClient(url string, timeout time.Duration) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Timeout(timeout), nats.Name("product-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewJetStreamContext(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nil
}

// EnsureProductsStream creates or updates the stream capturing all product subjects.
func EnsureProductsStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     ProductsStream,
		Subjects: []string{"products.>"},
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", ProductsStream, err)
	}
	return nil
}
