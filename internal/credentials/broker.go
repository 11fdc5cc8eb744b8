// Package credentials exchanges a tenant user's ID token for temporary
// role-scoped credentials through the federation broker, caching issued
// credentials per token until shortly before they expire.
package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"idgate/internal/identity"
)

// expirySlack keeps cached credentials from being served right at their
// expiration boundary.
const expirySlack = 30 * time.Second

// Request identifies the federated exchange to perform.
type Request struct {
	IdentityPoolID string `json:"identity_pool_id"`
	PoolID         string `json:"pool_id"`
	IDToken        string `json:"token"`
}

// Cache stores issued credentials keyed by token digest.
type Cache interface {
	Get(ctx context.Context, key string) (identity.Credentials, bool, error)
	Set(ctx context.Context, key string, creds identity.Credentials, ttl time.Duration) error
}

// Broker resolves federated identities and issues temporary credentials.
type Broker struct {
	fed    identity.Federation
	cache  Cache
	region string
	log    *zap.SugaredLogger
}

func NewBroker(fed identity.Federation, cache Cache, region string, log *zap.SugaredLogger) *Broker {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Broker{fed: fed, cache: cache, region: region, log: log}
}

// Issue returns credentials for the given ID token, serving from cache when
// an unexpired entry exists for the same token.
func (b *Broker) Issue(ctx context.Context, req Request) (identity.Credentials, error) {
	if req.IDToken == "" {
		return identity.Credentials{}, errors.New("missing token")
	}
	key := tokenKey(req.IDToken)
	if creds, ok, err := b.cache.Get(ctx, key); err != nil {
		b.log.Warnw("credential cache read failed", "err", err)
	} else if ok && time.Until(creds.Expiration) > expirySlack {
		return creds, nil
	}

	provider := b.providerName(req.PoolID)
	identityID, err := b.fed.ResolveIdentity(ctx, req.IdentityPoolID, provider, req.IDToken)
	if err != nil {
		return identity.Credentials{}, err
	}
	creds, err := b.fed.CredentialsForIdentity(ctx, identityID, provider, req.IDToken)
	if err != nil {
		return identity.Credentials{}, err
	}

	if ttl := time.Until(creds.Expiration) - expirySlack; ttl > 0 {
		if err := b.cache.Set(ctx, key, creds, ttl); err != nil {
			b.log.Warnw("credential cache write failed", "err", err)
		}
	}
	return creds, nil
}

// providerName is the directory provider identifier the federation layer
// expects: the pool's issuer host path without the https scheme.
func (b *Broker) providerName(poolID string) string {
	return "cognito-idp." + b.region + ".amazonaws.com/" + poolID
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "creds:" + hex.EncodeToString(sum[:])
}

// memoryCache is the in-process fallback when no redis is configured.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	creds   identity.Credentials
	expires time.Time
}

func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) (identity.Credentials, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return identity.Credentials{}, false, nil
	}
	return e.creds, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, creds identity.Credentials, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{creds: creds, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// redisCache shares issued credentials across replicas.
type redisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) Cache {
	return &redisCache{rdb: rdb}
}

func (c *redisCache) Get(ctx context.Context, key string) (identity.Credentials, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Credentials{}, false, nil
	}
	if err != nil {
		return identity.Credentials{}, false, err
	}
	var creds identity.Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return identity.Credentials{}, false, err
	}
	return creds, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, creds identity.Credentials, ttl time.Duration) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}
