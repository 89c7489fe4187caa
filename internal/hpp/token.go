package hpp

import (
	"context"
	"fmt"
	"sync"
)

// TokenSource obtains a hosted-payment security token for the platform
// session. Implemented by the billing client.
type TokenSource interface {
	AuthenticateHostedPayments(ctx context.Context) (string, error)
}

// TokenCache caches the widget security token in memory. The token is
// session-scoped on the platform side; the bridge invalidates the cache each
// time the payment step is (re-)entered so a stale token is never handed to
// a fresh form.
type TokenCache struct {
	source TokenSource

	mu    sync.Mutex
	token string
}

// NewTokenCache creates a cache over the given source.
func NewTokenCache(source TokenSource) *TokenCache {
	return &TokenCache{source: source}
}

// Get returns the cached token, fetching one when the cache is empty.
func (tc *TokenCache) Get(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token != "" {
		return tc.token, nil
	}

	token, err := tc.source.AuthenticateHostedPayments(ctx)
	if err != nil {
		return "", fmt.Errorf("hpp token: %w", err)
	}
	tc.token = token
	return token, nil
}

// Invalidate drops the cached token, forcing a re-fetch on next Get.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	tc.token = ""
	tc.mu.Unlock()
}
