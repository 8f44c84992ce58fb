// Package reqid carries a per-operation identifier through a context. The
// transport sends it as the X-Request-Id header.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header the identifier travels in.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent carrying a fresh random ID, and the ID.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// Ensure returns ctx and its ID, adding a new one when ctx has none.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	return NewContext(ctx)
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
