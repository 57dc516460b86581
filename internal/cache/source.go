package cache

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/logging"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/source"
)

const (
	keyPrefix  = "pos:list:"
	defaultTTL = 20 * time.Second
)

// Source is a cache-aside wrapper around another list source. Cache failures
// never fail a list; they are logged and the wrapped source is used.
type Source struct {
	next    source.Source
	scope   string
	cache   ListCache
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewSource caches pages of next under scope, which must tell apart callers
// that are allowed to see different rows for the same query.
func NewSource(next source.Source, store ListCache, scope string, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *Source {
	if store == nil {
		store = NoopListCache{}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Source{next: next, scope: scope, cache: store, ttl: ttl, log: log.With(slog.String("component", "list-cache")), metrics: m}
}

// Next is the wrapped source.
func (s *Source) Next() source.Source {
	return s.next
}

func (s *Source) List(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error) {
	if screen == nil {
		return s.next.List(ctx, screen, params)
	}
	key := Key(s.scope, screen.Name, params)

	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.CacheLookup(screen.Name, metrics.CacheError)
		s.log.Warn("cache get failed", slog.String("screen", screen.Name), logging.Err(err))
	case ok:
		s.metrics.CacheLookup(screen.Name, metrics.CacheHit)
		return cached, nil
	default:
		s.metrics.CacheLookup(screen.Name, metrics.CacheMiss)
	}

	page, err := s.next.List(ctx, screen, params)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, page, s.ttl); err != nil {
		s.log.Warn("cache set failed", slog.String("screen", screen.Name), logging.Err(err))
	}
	return page, nil
}

// Purge drops every cached page of screen. A cache that cannot invalidate
// reports zero removed.
func (s *Source) Purge(ctx context.Context, screen string) (int, error) {
	inv, ok := s.cache.(Invalidator)
	if !ok {
		return 0, nil
	}
	removed, err := inv.Invalidate(ctx, screen)
	if err != nil {
		return removed, err
	}
	s.log.Info("list cache purged", slog.String("screen", screen), slog.Int("removed", removed))
	return removed, nil
}

// Key hashes scope and the canonical encoding of params, so structurally
// equal queries of one scope share an entry.
func Key(scope string, screen string, params query.Params) string {
	sum := blake2b.Sum256([]byte(scope + "\n" + params.Encode()))
	return keyPrefix + screen + ":" + hex.EncodeToString(sum[:16])
}
