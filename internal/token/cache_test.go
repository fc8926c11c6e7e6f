package token

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    int32
	delay    time.Duration
	cred     Credential
	err      error
	lastSeen string
}

func (p *fakeProvider) Refresh(ctx context.Context, clientID string) (Credential, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.lastSeen = clientID
	p.mu.Unlock()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.cred, p.err
}

func TestTokenReturnsCachedWhileUsable(t *testing.T) {
	provider := &fakeProvider{cred: Credential{
		AccessToken: "tok-1",
		IssuedAt:    time.Now(),
		ExpiresIn:   time.Hour,
	}}
	cache := NewCache(provider)

	for i := 0; i < 3; i++ {
		tok, err := cache.Token(context.Background(), "client")
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "tok-1" {
			t.Fatalf("unexpected token: %q", tok)
		}
	}
	if got := atomic.LoadInt32(&provider.calls); got != 1 {
		t.Fatalf("expected a single refresh, got %d", got)
	}
}

func TestTokenRefreshesAtMargin(t *testing.T) {
	// Issued 10 minutes ago with an 8 minute lifetime: expired.
	provider := &fakeProvider{cred: Credential{
		AccessToken: "fresh",
		IssuedAt:    time.Now(),
		ExpiresIn:   time.Hour,
	}}
	cache := NewCache(provider)
	cache.cred = Credential{
		AccessToken: "stale",
		IssuedAt:    time.Now().Add(-10 * time.Minute),
		ExpiresIn:   8 * time.Minute,
	}

	tok, err := cache.Token(context.Background(), "client")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "fresh" {
		t.Fatalf("stale token served: %q", tok)
	}
}

func TestTokenNeverServesInsideMargin(t *testing.T) {
	// 90 seconds of advertised lifetime left, which is inside the 60s
	// margin minus nothing: usable. 30 seconds left: not usable.
	cred := Credential{AccessToken: "t", IssuedAt: time.Now().Add(-time.Hour + 90*time.Second), ExpiresIn: time.Hour}
	if !cred.Usable(time.Now()) {
		t.Fatal("credential with 90s left should be usable")
	}
	cred.IssuedAt = time.Now().Add(-time.Hour + 30*time.Second)
	if cred.Usable(time.Now()) {
		t.Fatal("credential with 30s left is inside the margin")
	}
}

func TestConcurrentTokenSingleRefresh(t *testing.T) {
	provider := &fakeProvider{
		delay: 50 * time.Millisecond,
		cred: Credential{
			AccessToken: "tok",
			IssuedAt:    time.Now(),
			ExpiresIn:   time.Hour,
		},
	}
	cache := NewCache(provider)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := cache.Token(context.Background(), "client")
			if err != nil {
				errs <- err
				return
			}
			if tok != "tok" {
				errs <- errors.New("unexpected token " + tok)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Token: %v", err)
	}
	if got := atomic.LoadInt32(&provider.calls); got != 1 {
		t.Fatalf("expected a single refresh for concurrent callers, got %d", got)
	}
}

func TestTokenRefreshFailureLeavesCacheUnchanged(t *testing.T) {
	provider := &fakeProvider{err: errors.New("endpoint down")}
	cache := NewCache(provider)

	_, err := cache.Token(context.Background(), "client")
	if !errors.Is(err, ErrCredentialUnavailable) {
		t.Fatalf("expected ErrCredentialUnavailable, got %v", err)
	}
	if cache.cred.AccessToken != "" {
		t.Fatal("failed refresh must not populate the cache")
	}

	// Recovery works without a restart.
	provider.err = nil
	provider.cred = Credential{AccessToken: "recovered", IssuedAt: time.Now(), ExpiresIn: time.Hour}
	tok, err := cache.Token(context.Background(), "client")
	if err != nil {
		t.Fatalf("Token after recovery: %v", err)
	}
	if tok != "recovered" {
		t.Fatalf("unexpected token: %q", tok)
	}
}
