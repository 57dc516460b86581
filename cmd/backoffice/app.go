package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kasirinaja/backoffice/internal/cache"
	"kasirinaja/backoffice/internal/config"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/httpsource"
	"kasirinaja/backoffice/internal/logging"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/session"
	"kasirinaja/backoffice/internal/source"
	"kasirinaja/backoffice/internal/source/memory"
	pgsource "kasirinaja/backoffice/internal/source/postgres"
	"kasirinaja/backoffice/internal/storectx"
)

// app is everything a command needs: the configured list source, the
// screen declarations and the current-store context of the session.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	registry *screens.Registry
	source   source.Source
	session  *session.Session
	stores   *storectx.Context
	gatherer *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func() error
}

type storeLister interface {
	Stores() []domain.Store
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logging.New(cfg.LogFormat, cfg.LogLevel),
	}
	a.gatherer = prometheus.NewRegistry()
	a.metrics = metrics.New(a.gatherer)

	registry, err := screens.Load(cfg.ScreensFile)
	if err != nil {
		return nil, err
	}
	a.registry = registry

	if cfg.APIToken != "" {
		s, err := session.NewParser(cfg.TokenSecret).Parse(cfg.APIToken)
		if err != nil {
			return nil, fmt.Errorf("BACKOFFICE_API_TOKEN: %w", err)
		}
		a.session = s
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var src source.Source
	switch cfg.SourceKind() {
	case config.SourceHTTP:
		src = httpsource.New(cfg.APIURL, cfg.APIToken,
			httpsource.WithRateLimit(cfg.RequestsPerSecond, 1),
			httpsource.WithLogger(a.log),
		)
		a.log.Debug("list source: http", slog.String("api_url", cfg.APIURL))
	case config.SourcePostgres:
		pg, err := pgsource.New(setupCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		src = pg
		a.closers = append(a.closers, pg.Close)
		a.log.Debug("list source: postgres")
	default:
		src = memory.NewSeeded(time.Now())
		a.log.Debug("list source: in-memory")
	}

	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisListCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(setupCtx); err != nil {
			a.log.Warn("redis unavailable, list cache disabled", logging.Err(err))
			_ = redisCache.Close()
		} else {
			src = cache.NewSource(src, redisCache, a.cacheScope(), cfg.CacheTTL(), a.log, a.metrics)
			a.closers = append(a.closers, redisCache.Close)
			a.log.Debug("list cache: redis")
		}
	}
	a.source = src

	stores, err := a.storeContext(src)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.stores = stores
	return a, nil
}

// storeContext builds the current-store context from the access token when
// there is one, otherwise from the stores the source knows about.
func (a *app) storeContext(src source.Source) (*storectx.Context, error) {
	var stores *storectx.Context
	switch {
	case a.session != nil:
		stores = a.session.StoreContext()
	default:
		var known []domain.Store
		if lister, ok := unwrap(src).(storeLister); ok {
			known = lister.Stores()
		}
		if currentStore > 0 && !containsStore(known, domain.StoreID(currentStore)) {
			known = append(known, domain.Store{ID: domain.StoreID(currentStore), Active: true})
		}
		stores = storectx.New(firstActive(known), known)
	}

	if currentStore > 0 {
		if err := stores.Switch(domain.StoreID(currentStore)); err != nil {
			return nil, fmt.Errorf("--current-store %d: %w", currentStore, err)
		}
	}
	return stores, nil
}

// cacheScope keys cached pages by what the caller may see. Without a session
// every caller of the same backend sees the same rows.
func (a *app) cacheScope() string {
	backend := a.cfg.SourceKind()
	switch a.cfg.SourceKind() {
	case config.SourceHTTP:
		backend += "|" + a.cfg.APIURL
	case config.SourcePostgres:
		backend += "|" + a.cfg.DatabaseURL
	}
	if a.session != nil {
		return backend + "|" + a.session.CacheScope()
	}
	return backend
}

// purge drops the cached pages of screen; it fails when no cache is in use.
func (a *app) purge(ctx context.Context, screen string) (int, error) {
	c, ok := a.source.(*cache.Source)
	if !ok {
		return 0, errNoCache
	}
	return c.Purge(ctx, screen)
}

var errNoCache = errors.New("no list cache configured")

func (a *app) screen(name string) (*screens.Screen, error) {
	s, err := a.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (known: %s)", err, strings.Join(a.registry.Names(), ", "))
	}
	return s, nil
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Warn("close failed", logging.Err(err))
		}
	}
	a.closers = nil
}

func unwrap(src source.Source) source.Source {
	if c, ok := src.(*cache.Source); ok {
		return c.Next()
	}
	return src
}

func containsStore(stores []domain.Store, id domain.StoreID) bool {
	for _, s := range stores {
		if s.ID == id {
			return true
		}
	}
	return false
}

func firstActive(stores []domain.Store) *domain.StoreID {
	for _, s := range stores {
		if s.Active {
			id := s.ID
			return &id
		}
	}
	return nil
}
