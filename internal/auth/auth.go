package auth

import (
	"context"
	"errors"
)

// Roles that may request a sensitive-data export. Editors and viewers
// are treated alike for read access.
const (
	EditorRole = "verenigingen-beheerder"
	ViewerRole = "verenigingen-lezer"
)

var (
	ErrNoSession      = errors.New("auth: missing session")
	ErrInvalidSession = errors.New("auth: session not resolved")
	ErrForbidden      = errors.New("auth: missing required role")
	ErrBadReason      = errors.New("auth: invalid request reason")
)

// Session is the resolved identity behind a session identifier: the
// account, the administrative unit that owns it and, when known, the
// person operating it. Scope is the owning unit's werkingsgebied.
type Session struct {
	ID      string
	Account string
	Group   string
	Person  string
	Roles   []string
	Scope   string
}

// HasRole reports whether the session carries the named role.
func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Directory resolves sessions and reason codes. Implementations return
// a nil session, or an empty reference, on no-match rather than an error.
type Directory interface {
	ResolveSession(ctx context.Context, sessionID string) (*Session, error)
	FindReason(ctx context.Context, reasonID string) (string, error)
}
