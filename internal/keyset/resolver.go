// Package keyset resolves and caches per-issuer public signing keys.
package keyset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"idgate/pkg/metrics"
)

// ErrKeySetUnavailable wraps any network or decode failure while fetching a
// JWKS document.
var ErrKeySetUnavailable = errors.New("key set unavailable")

const wellKnownPath = "/.well-known/jwks.json"

type cached struct {
	set     jwk.Set
	expires time.Time // zero means never
}

// Resolver fetches JWKS documents and caches them per issuer. The cache is
// process-wide shared mutable state: reads take the RLock, population is
// serialized through a single-flight group so concurrent first requests for
// one issuer trigger exactly one fetch.
type Resolver struct {
	ttl   time.Duration // 0 disables expiry
	fetch func(ctx context.Context, url string) (jwk.Set, error)

	mu    sync.RWMutex
	sets  map[string]cached
	group singleflight.Group
}

// New returns a Resolver with the given TTL. A zero TTL keeps entries for the
// life of the process; production deployments should set one, signing keys
// rotate.
func New(ttl time.Duration) *Resolver {
	return &Resolver{
		ttl: ttl,
		fetch: func(ctx context.Context, url string) (jwk.Set, error) {
			return jwk.Fetch(ctx, url)
		},
		sets: map[string]cached{},
	}
}

// Resolve returns the key set for issuer, fetching
// <issuer>/.well-known/jwks.json on a cache miss.
func (r *Resolver) Resolve(ctx context.Context, issuer string) (jwk.Set, error) {
	issuer = strings.TrimRight(issuer, "/")

	r.mu.RLock()
	if e, ok := r.sets[issuer]; ok && (e.expires.IsZero() || time.Now().Before(e.expires)) {
		r.mu.RUnlock()
		return e.set, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(issuer, func() (any, error) {
		// Re-check under the group: a concurrent caller may have populated
		// the entry while this one waited.
		r.mu.RLock()
		if e, ok := r.sets[issuer]; ok && (e.expires.IsZero() || time.Now().Before(e.expires)) {
			r.mu.RUnlock()
			return e.set, nil
		}
		r.mu.RUnlock()

		set, err := r.fetch(ctx, issuer+wellKnownPath)
		if err != nil {
			metrics.JWKSFetches.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrKeySetUnavailable, issuer, err)
		}
		metrics.JWKSFetches.WithLabelValues("ok").Inc()

		e := cached{set: set}
		if r.ttl > 0 {
			e.expires = time.Now().Add(r.ttl)
		}
		r.mu.Lock()
		r.sets[issuer] = e
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}
