package auth

import (
	"context"
	"fmt"

	"verenigingsloket.org/internal/audit"
	"verenigingsloket.org/internal/obs"
)

// Gate runs the ordered access checks for sensitive-data exports and
// records every attempt, denied or granted.
type Gate struct {
	dir         Directory
	rec         audit.Recorder
	reasonCheck bool
}

// Grant is the evidence of a passed gate: the resolved session and, when
// reason enforcement is on, the reference of the validated reason code.
type Grant struct {
	Session         Session
	ReasonReference string
}

func NewGate(dir Directory, rec audit.Recorder, reasonCheck bool) *Gate {
	return &Gate{dir: dir, rec: rec, reasonCheck: reasonCheck}
}

// Authorize runs the checks in order: session present, session resolves,
// role held, reason valid. The first failure is audited and returned as a
// typed denial; no further checks run. A granted attempt is audited by
// RecordGrant once the guarded resource exists.
func (g *Gate) Authorize(ctx context.Context, sessionID, reasonID string) (*Grant, error) {
	if sessionID == "" {
		g.deny(ctx, "", "", "missing session")
		return nil, fmt.Errorf("%w: missing session", ErrNoSession)
	}

	sess, err := g.dir.ResolveSession(ctx, sessionID)
	if err != nil {
		g.deny(ctx, "", "", "session lookup failed: "+err.Error())
		return nil, fmt.Errorf("auth: resolve session: %w", err)
	}
	if sess == nil || sess.Account == "" || sess.Group == "" {
		g.deny(ctx, "", "", "session did not resolve to an account")
		return nil, fmt.Errorf("%w: unknown session", ErrInvalidSession)
	}

	if !sess.HasRole(EditorRole) && !sess.HasRole(ViewerRole) {
		g.deny(ctx, sess.Account, "", fmt.Sprintf("missing required role: %s or %s", EditorRole, ViewerRole))
		return nil, fmt.Errorf("%w: need %s or %s", ErrForbidden, EditorRole, ViewerRole)
	}

	grant := &Grant{Session: *sess}
	if g.reasonCheck {
		if reasonID == "" {
			g.deny(ctx, sess.Account, "", "missing required header: X-Request-Reason")
			return nil, fmt.Errorf("%w: missing X-Request-Reason", ErrBadReason)
		}
		ref, err := g.dir.FindReason(ctx, reasonID)
		if err != nil {
			g.deny(ctx, sess.Account, "", "reason lookup failed: "+err.Error())
			return nil, fmt.Errorf("auth: resolve reason: %w", err)
		}
		if ref == "" {
			g.deny(ctx, sess.Account, "", "invalid X-Request-Reason value")
			return nil, fmt.Errorf("%w: unknown reason %q", ErrBadReason, reasonID)
		}
		grant.ReasonReference = ref
	}
	return grant, nil
}

// RecordGrant audits a granted attempt, referencing the created resource.
func (g *Gate) RecordGrant(ctx context.Context, grant *Grant, resourceRef string) {
	g.append(ctx, &audit.Record{
		ResourceReference: resourceRef,
		ReasonReference:   grant.ReasonReference,
		Actor:             grant.Session.Account,
		Success:           true,
	})
}

func (g *Gate) deny(ctx context.Context, actor, reasonRef, detail string) {
	g.append(ctx, &audit.Record{
		ReasonReference: reasonRef,
		Actor:           actor,
		Success:         false,
		ErrorDetail:     detail,
	})
}

// append is best-effort: a failed audit write is logged, never surfaced
// to the caller of the guarded operation.
func (g *Gate) append(ctx context.Context, rec *audit.Record) {
	if g.rec == nil {
		return
	}
	if err := g.rec.Append(ctx, rec); err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "audit append failed", "error": err.Error()})
	}
}
