package web

import (
	"context"
	"encoding/json"
)

type requestIDKey struct{}

type jsonBodyKey struct{}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// WithJSONBody stores an already decoded JSON request body in the context.
func WithJSONBody(ctx context.Context, body json.RawMessage) context.Context {
	return context.WithValue(ctx, jsonBodyKey{}, body)
}

// GetJSONBody returns the body stored by WithJSONBody.
// The boolean is false when the request carried no JSON body.
func GetJSONBody(ctx context.Context) (json.RawMessage, bool) {
	body, ok := ctx.Value(jsonBodyKey{}).(json.RawMessage)
	return body, ok
}
