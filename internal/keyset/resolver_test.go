package keyset

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolverFetchesOverHTTP(t *testing.T) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw.Public())
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "live-key"))
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pool-1/.well-known/jwks.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)

	// The stock resolver, no injected fetch: the default must reach the
	// issuer's well-known document.
	got, err := New(0).Resolve(context.Background(), srv.URL+"/pool-1")
	require.NoError(t, err)
	_, ok := got.LookupKeyID("live-key")
	assert.True(t, ok)
}

func TestResolveCachesPerIssuer(t *testing.T) {
	var calls int32
	r := New(0)
	r.fetch = func(_ context.Context, url string) (jwk.Set, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "https://issuer.example/pool-1/.well-known/jwks.json", url)
		return jwk.NewSet(), nil
	}

	first, err := r.Resolve(context.Background(), "https://issuer.example/pool-1")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "https://issuer.example/pool-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolveNormalizesTrailingSlash(t *testing.T) {
	var calls int32
	r := New(0)
	r.fetch = func(_ context.Context, _ string) (jwk.Set, error) {
		atomic.AddInt32(&calls, 1)
		return jwk.NewSet(), nil
	}

	_, err := r.Resolve(context.Background(), "https://issuer.example/pool-1/")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "https://issuer.example/pool-1")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolveSingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	r := New(0)
	r.fetch = func(_ context.Context, _ string) (jwk.Set, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return jwk.NewSet(), nil
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "https://issuer.example/pool-1")
			assert.NoError(t, err)
		}()
	}

	// Let every goroutine park on the in-flight fetch before it returns.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolveRefetchesAfterTTL(t *testing.T) {
	var calls int32
	r := New(10 * time.Millisecond)
	r.fetch = func(_ context.Context, _ string) (jwk.Set, error) {
		atomic.AddInt32(&calls, 1)
		return jwk.NewSet(), nil
	}

	_, err := r.Resolve(context.Background(), "https://issuer.example/pool-1")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = r.Resolve(context.Background(), "https://issuer.example/pool-1")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestResolveFetchFailure(t *testing.T) {
	r := New(0)
	r.fetch = func(_ context.Context, _ string) (jwk.Set, error) {
		return nil, errors.New("connection refused")
	}

	_, err := r.Resolve(context.Background(), "https://issuer.example/pool-1")
	assert.ErrorIs(t, err, ErrKeySetUnavailable)

	// A failed fetch must not poison the cache.
	r.fetch = func(_ context.Context, _ string) (jwk.Set, error) {
		return jwk.NewSet(), nil
	}
	_, err = r.Resolve(context.Background(), "https://issuer.example/pool-1")
	assert.NoError(t, err)
}
