package token

import (
	"errors"
	"time"
)

// ErrCredentialUnavailable indicates a refresh failed and no valid
// credential could be served. Fatal to the current job attempt.
var ErrCredentialUnavailable = errors.New("token: credential unavailable")

// expiryMargin is subtracted from the advertised lifetime so a token is
// never presented to the registry moments before it expires.
const expiryMargin = 60 * time.Second

// Credential is the cached OAuth2 access token. Replaced wholesale on
// refresh, never mutated in place.
type Credential struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresIn   time.Duration
}

// Usable reports whether the credential may still be presented at the
// given instant, honoring the expiry margin.
func (c Credential) Usable(now time.Time) bool {
	if c.AccessToken == "" || c.IssuedAt.IsZero() || c.ExpiresIn <= 0 {
		return false
	}
	return now.Before(c.IssuedAt.Add(c.ExpiresIn - expiryMargin))
}
