package xid

import (
	"context"
	"fmt"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 12
)

// New returns "<prefix>-<random>", e.g. "req-V1StGXR8Z5jd". If the random
// source fails it falls back to a timestamp suffix.
func New(prefix string) string {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return prefix + "-" + id
}

type requestIDKey struct{}

// WithRequestID tags ctx with the id of the list request it carries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
