package messaging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/productapi/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct{}

func (stubEvent) Subject() string          { return "products.test" }
func (stubEvent) Payload() ([]byte, error) { return []byte("{}"), nil }

// countingPublisher fails with err and counts its calls
type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) Publish(context.Context, Event) error {
	p.calls++
	return p.err
}

func Test_BreakerPublisher_PassesThrough(t *testing.T) {
	// given
	next := &countingPublisher{}
	breaker := NewBreakerPublisher(next, config.CircuitBreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, slog.New(slog.DiscardHandler))
	// when
	err := breaker.Publish(context.Background(), stubEvent{})
	// then
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func Test_BreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	// given
	ErrBroker := errors.New("broker down")
	next := &countingPublisher{err: ErrBroker}
	breaker := NewBreakerPublisher(next, config.CircuitBreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, slog.New(slog.DiscardHandler))
	// when
	first := breaker.Publish(context.Background(), stubEvent{})
	second := breaker.Publish(context.Background(), stubEvent{})
	third := breaker.Publish(context.Background(), stubEvent{})
	// then
	assert.ErrorIs(t, first, ErrBroker)
	assert.ErrorIs(t, second, ErrBroker)
	assert.ErrorIs(t, third, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls, "an open breaker must not reach the broker")
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
}

func Test_NopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), stubEvent{}))
}
