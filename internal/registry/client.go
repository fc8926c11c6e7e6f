package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"verenigingsloket.org/internal/export"
	"verenigingsloket.org/internal/obs"
	"verenigingsloket.org/internal/token"
)

const fetchTimeout = 30 * time.Second

// TokenSource provides a bearer token for registry calls.
type TokenSource interface {
	Token(ctx context.Context, clientID string) (string, error)
}

// Client fetches associations from the external registry API with bounded
// concurrency. Individual failures are dropped, never retried.
type Client struct {
	base     string
	version  string
	limit    int
	clientID string
	tokens   TokenSource
	http     *http.Client
	limiter  *rate.Limiter
}

// Option configures Client behavior.
type Option func(*Client)

// WithRateLimit caps request starts with a token bucket on top of the
// concurrency bound.
func WithRateLimit(perSecond, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithHTTPClient overrides the transport, used by tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a registry client. limit bounds in-flight requests;
// values below one fall back to the default of 10.
func NewClient(base, version string, limit int, tokens TokenSource, clientID string, opts ...Option) *Client {
	if limit <= 0 {
		limit = 10
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c := &Client{
		base:     base,
		version:  version,
		limit:    limit,
		clientID: clientID,
		tokens:   tokens,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMany resolves the given registry keys to association records.
// Keys are processed in groups of the concurrency limit: groups run
// sequentially, the members of one group concurrently, so no more than
// the limit is in flight at any instant. Failed fetches are logged and
// excluded; the output length is at most the input length. An empty input
// returns immediately without any network call.
func (c *Client) FetchMany(ctx context.Context, vCodes []string) ([]Association, error) {
	if len(vCodes) == 0 {
		return []Association{}, nil
	}

	groups := export.Chunks(vCodes, c.limit)
	results := make([]Association, 0, len(vCodes))

	for i, group := range groups {
		settled := make([]*Association, len(group))
		errs := make([]error, len(group))
		var wg sync.WaitGroup
		for j, vCode := range group {
			wg.Add(1)
			go func(j int, vCode string) {
				defer wg.Done()
				assoc, err := c.fetchOne(ctx, vCode)
				if err != nil {
					errs[j] = err
					obs.RegistryFetchFailures.Inc()
					obs.Log(map[string]any{
						"level": "warn", "msg": "registry fetch failed",
						"vcode": vCode, "error": err.Error(),
					})
					return
				}
				settled[j] = assoc
			}(j, vCode)
		}
		wg.Wait()

		// Per-key failures are dropped, but a missing credential dooms
		// every remaining fetch: surface it instead of an empty result.
		for _, err := range errs {
			if errors.Is(err, token.ErrCredentialUnavailable) {
				return nil, err
			}
		}

		ok := 0
		for _, assoc := range settled {
			if assoc != nil {
				results = append(results, *assoc)
				ok++
			}
		}
		obs.Log(map[string]any{
			"level": "info", "msg": "registry group settled",
			"group": i + 1, "groups": len(groups), "fetched": ok, "of": len(group),
		})
	}
	return results, nil
}

// RepresentativeRows fetches the keys and maps the payloads to flat
// representative rows, satisfying export.RepresentativeSource.
func (c *Client) RepresentativeRows(ctx context.Context, keys []string) ([]export.Row, error) {
	assocs, err := c.FetchMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	return MapRepresentativeRows(assocs), nil
}

func (c *Client) fetchOne(ctx context.Context, vCode string) (*Association, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	tok, err := c.tokens.Token(ctx, c.clientID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"verenigingen/"+vCode, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("x-correlation-id", uuid.NewString())
	if c.version != "" {
		req.Header.Set("vr-api-version", c.version)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	obs.RegistryFetchDuration.Observe(time.Since(start).Seconds())

	success := (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusNotModified
	if !success {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload envelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// 304 responses may carry no body; pass them through without a record.
		if resp.StatusCode == http.StatusNotModified {
			return nil, nil
		}
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload.Vereniging == nil {
		return nil, nil
	}
	return payload.Vereniging, nil
}
