// Package app wires together configuration, the API client, the history
// store and the departures cache into a single Deps struct that commands
// receive at runtime.
package app

import (
	"fmt"
	"log/slog"

	"github.com/derickschaefer/departures/internal/aerodata"
	"github.com/derickschaefer/departures/internal/cache"
	"github.com/derickschaefer/departures/internal/config"
	"github.com/derickschaefer/departures/internal/search"
	"github.com/derickschaefer/departures/internal/store"
	"github.com/derickschaefer/departures/internal/util"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is nil until RequireStore is called.
type Deps struct {
	Config *config.Config
	Client *aerodata.Client
	Cache  cache.Cache
	Store  *store.Store
}

// New builds a Deps from resolved config. When a Redis address is
// configured and reachable, departures responses are cached there;
// otherwise caching is a no-op. NoCache always disables it.
func New(cfg *config.Config) *Deps {
	client := aerodata.NewClient(
		cfg.APIKey,
		cfg.APIHost,
		cfg.BaseURL,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)

	var c cache.Cache = cache.NewNoOpCache()
	if cfg.RedisAddr != "" && !cfg.NoCache {
		rc := cache.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		if cfg.CacheTTL > 0 {
			rc.TTL = cfg.CacheTTL
		}
		redisCache, err := cache.NewRedisCache(rc)
		if err != nil {
			slog.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			c = redisCache
		}
	}
	client.WithCache(c)

	return &Deps{
		Config: cfg,
		Client: client,
		Cache:  c,
	}
}

// RequireStore opens the history database at Config.DBPath. It is a no-op
// when the store is already open.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	d.Store = s
	return nil
}

// NewController builds a search controller backed by the client and the
// history store. The store must already be open. The store doubles as the
// identity provider: signing out clears the local session.
func (d *Deps) NewController(onSignOut func()) *search.Controller {
	opts := search.Options{
		DetailTimes: d.Config.DetailTimes,
		OnSignOut:   onSignOut,
	}
	if d.Store == nil {
		return search.New(d.Client, nil, opts)
	}
	opts.Identity = d.Store
	return search.New(d.Client, d.Store, opts)
}

// Close releases the store and the cache connection.
func (d *Deps) Close() error {
	var errs util.MultiError
	if d.Store != nil {
		errs.Add(d.Store.Close())
		d.Store = nil
	}
	if d.Cache != nil {
		errs.Add(d.Cache.Close())
	}
	return errs.Err()
}
