package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"verenigingsloket.org/internal/obs"
)

// Provider exchanges client credentials for a fresh access token.
// Two implementations exist; one is selected at startup from configuration.
type Provider interface {
	Refresh(ctx context.Context, clientID string) (Credential, error)
}

// Cache holds the single process-wide credential. Concurrent Token calls
// during a refresh observe exactly one in-flight exchange; the lock is not
// held across the network call.
type Cache struct {
	provider Provider
	now      func() time.Time

	mu       sync.Mutex
	cred     Credential
	inflight *refreshCall
}

type refreshCall struct {
	done chan struct{}
	cred Credential
	err  error
}

// NewCache wraps the provider with credential caching.
func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider, now: time.Now}
}

// Token returns a cached access token while it remains usable, refreshing
// it otherwise. A failed refresh leaves the cache unchanged and reports
// ErrCredentialUnavailable; an expired token is never returned.
func (c *Cache) Token(ctx context.Context, clientID string) (string, error) {
	c.mu.Lock()
	if c.cred.Usable(c.now()) {
		tok := c.cred.AccessToken
		c.mu.Unlock()
		return tok, nil
	}

	if call := c.inflight; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if call.err != nil {
			return "", call.err
		}
		return call.cred.AccessToken, nil
	}

	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	obs.Log(map[string]any{"level": "info", "msg": "fetching new access token"})
	cred, err := c.provider.Refresh(ctx, clientID)

	c.mu.Lock()
	c.inflight = nil
	if err != nil {
		obs.TokenRefreshTotal.WithLabelValues("failure").Inc()
		call.err = fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	} else {
		obs.TokenRefreshTotal.WithLabelValues("success").Inc()
		c.cred = cred
		call.cred = cred
	}
	c.mu.Unlock()
	close(call.done)

	if call.err != nil {
		return "", call.err
	}
	return call.cred.AccessToken, nil
}
