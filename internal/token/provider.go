package token

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const assertionLifetime = 9 * time.Minute

// tokenResponse is the relevant slice of the endpoint's JSON body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SharedSecretProvider implements the pre-production flow: a static shared
// secret is exchanged for a token via a Basic-auth client-credentials POST.
type SharedSecretProvider struct {
	tokenURL string
	scope    string
	key      string
	client   *http.Client
}

// NewSharedSecretProvider fails when the shared secret is not configured.
func NewSharedSecretProvider(audience, scope, authorizationKey string) (*SharedSecretProvider, error) {
	if strings.TrimSpace(authorizationKey) == "" {
		return nil, errors.New("token: authorization key is required but not configured")
	}
	return &SharedSecretProvider{
		tokenURL: strings.TrimRight(audience, "/") + "/v1/token",
		scope:    scope,
		key:      authorizationKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *SharedSecretProvider) Refresh(ctx context.Context, clientID string) (Credential, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {p.scope},
	}
	headers := map[string]string{
		"Content-Type":  "application/x-www-form-urlencoded",
		"Authorization": "Basic " + p.key,
	}
	return exchange(ctx, p.client, p.tokenURL, form, headers)
}

// AssertionProvider implements the production flow: a short-lived RS256
// assertion signed with a key from the configuration directory is exchanged
// via the jwt-bearer client-credentials grant.
type AssertionProvider struct {
	tokenURL string
	audience string
	scope    string
	key      *rsa.PrivateKey
	client   *http.Client
	now      func() time.Time
}

// NewAssertionProvider loads the signing key from keyDir (first *.pem file)
// and fails when none is found.
func NewAssertionProvider(authDomain, audience, scope, keyDir string) (*AssertionProvider, error) {
	key, err := loadSigningKey(keyDir)
	if err != nil {
		return nil, err
	}
	return &AssertionProvider{
		tokenURL: "https://" + authDomain + "/op/v1/token",
		audience: audience,
		scope:    scope,
		key:      key,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}, nil
}

func (p *AssertionProvider) Refresh(ctx context.Context, clientID string) (Credential, error) {
	now := p.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    clientID,
		Subject:   clientID,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		ID:        uuid.NewString(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
	if err != nil {
		return Credential{}, fmt.Errorf("token: sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"scope":                 {p.scope},
		"client_assertion":      {assertion},
	}
	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/x-www-form-urlencoded",
	}
	return exchange(ctx, p.client, p.tokenURL, form, headers)
}

func exchange(ctx context.Context, client *http.Client, tokenURL string, form url.Values, headers map[string]string) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("token: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token: exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credential{}, fmt.Errorf("token: exchange failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Credential{}, fmt.Errorf("token: decode response: %w", err)
	}
	if payload.AccessToken == "" || payload.ExpiresIn <= 0 {
		return Credential{}, errors.New("token: response missing access_token or expires_in")
	}
	return Credential{
		AccessToken: payload.AccessToken,
		IssuedAt:    time.Now().UTC(),
		ExpiresIn:   time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}

func loadSigningKey(keyDir string) (*rsa.PrivateKey, error) {
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("token: key directory %s: %w", keyDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pem") {
			continue
		}
		pemBytes, err := os.ReadFile(filepath.Join(keyDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("token: read key file: %w", err)
		}
		key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("token: parse key %s: %w", entry.Name(), err)
		}
		return key, nil
	}
	return nil, fmt.Errorf("token: no signing key found in %s", keyDir)
}
