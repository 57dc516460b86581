package cache

import (
	"context"
	"time"

	"kasirinaja/backoffice/internal/domain"
)

// ListCache stores list pages under a key derived from the normalized query.
type ListCache interface {
	Get(ctx context.Context, key string) (*domain.Page, bool, error)
	Set(ctx context.Context, key string, value *domain.Page, ttl time.Duration) error
}

// Invalidator is implemented by caches that can drop every page of a screen.
type Invalidator interface {
	Invalidate(ctx context.Context, screen string) (int, error)
}

type NoopListCache struct{}

func (NoopListCache) Get(_ context.Context, _ string) (*domain.Page, bool, error) {
	return nil, false, nil
}

func (NoopListCache) Set(_ context.Context, _ string, _ *domain.Page, _ time.Duration) error {
	return nil
}
