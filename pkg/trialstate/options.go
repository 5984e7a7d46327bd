package trialstate

import (
	"log/slog"
	"time"
)

// Option configures a Provider.
type Option func(*Provider)

// WithTTL sets the snapshot freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithStore replaces the default in-memory cache, e.g. with NewRedisStore
// when several replicas must observe the same invalidations.
func WithStore(store Store) Option {
	return func(p *Provider) {
		if store != nil {
			p.store = store
		}
	}
}

// WithFailClosed makes ViewSnapshot propagate fetch errors instead of
// falling back to a permissive snapshot. The product currently favors
// availability over strict gating; flip this only on a confirmed business
// requirement.
func WithFailClosed() Option {
	return func(p *Provider) { p.failOpen = false }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}
