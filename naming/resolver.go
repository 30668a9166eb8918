package naming

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultResolveTimeout bounds a single resolution round trip when the
// Resolver has no explicit timeout configured.
const DefaultResolveTimeout = 30 * time.Second

// Resolver resolves pointer names against a naming service with a local
// cache for offline fallback and stale-record detection.
//
// Resolution order: the service is asked first, under a timeout. A record
// that arrives with a verification bundle must pass VerifyBundle. A record
// whose sequence is lower than the cached one is rejected as stale. On
// transport failure the cache is consulted; cached records come back with
// FromCache set so callers can tell them apart.
type Resolver struct {
	// Service is the naming service transport. Required.
	Service Service

	// Cache is the local pointer cache. Optional; without it there is no
	// offline fallback and no stale-record detection.
	Cache *PointerCache

	// Timeout bounds each service round trip. Zero means
	// DefaultResolveTimeout.
	Timeout time.Duration
}

// NewResolver creates a resolver over svc with an optional cache.
func NewResolver(svc Service, cache *PointerCache) *Resolver {
	return &Resolver{Service: svc, Cache: cache}
}

// Resolve returns the current record for name.
//
// ErrPointerNotFound and verification failures are returned as-is; the
// cache never papers over a name that does not exist or a record that
// fails integrity checks. Only transport failures fall back to the cache.
func (r *Resolver) Resolve(ctx context.Context, name string) (*PointerRecord, error) {
	if err := ValidatePointerName(name); err != nil {
		return nil, err
	}

	fresh, err := r.resolveFresh(ctx, name)
	if err != nil {
		if errors.Is(err, ErrPointerNotFound) || errors.Is(err, ErrUnverifiedRecord) {
			return nil, err
		}
		if r.Cache != nil {
			if cached, cerr := r.Cache.Get(name); cerr == nil {
				return cached, nil
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}

	if r.Cache != nil {
		if cached, cerr := r.Cache.Get(name); cerr == nil && fresh.Sequence < cached.Sequence {
			return nil, fmt.Errorf("%w: got sequence %d, previously saw %d",
				ErrStaleRecord, fresh.Sequence, cached.Sequence)
		}
		// Cache write failures do not fail the resolve.
		_ = r.Cache.Put(name, fresh)
	}
	return fresh, nil
}

// ResolveVerified returns the current record for name, requiring a record
// that passed full bundle verification. Cached and bundle-less records are
// rejected with ErrUnverifiedRecord.
func (r *Resolver) ResolveVerified(ctx context.Context, name string) (*PointerRecord, error) {
	rec, err := r.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec.FromCache {
		return nil, fmt.Errorf("%w: record served from cache", ErrUnverifiedRecord)
	}
	if !rec.HasBundle() {
		return nil, fmt.Errorf("%w: record carries no verification bundle", ErrUnverifiedRecord)
	}
	return rec, nil
}

// resolveFresh fetches from the service under the configured timeout and
// verifies the bundle when one is present.
func (r *Resolver) resolveFresh(ctx context.Context, name string) (*PointerRecord, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rec, err := r.Service.ResolvePointer(ctx, name)
	if err != nil {
		return nil, err
	}
	rec.StripPartialBundle()
	if rec.HasBundle() {
		if err := rec.VerifyBundle(name); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
