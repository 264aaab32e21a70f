package session

import (
	"context"
	"fmt"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/models"
)

// LoginRoute is where unauthenticated users are sent.
const LoginRoute = "/login"

type Verdict int

const (
	Wait Verdict = iota
	Redirect
	Allow
)

func (v Verdict) String() string {
	switch v {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decision is the guard's answer for one render. To is set for Redirect and
// User for Allow.
type Decision struct {
	Verdict Verdict
	To      string
	User    *models.User
}

// RedirectError is returned by Protect when the view must not run.
type RedirectError struct {
	To string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("authentication required: redirect to %s", e.To)
}

// Is lets callers test errors.Is(err, errors.ErrUnauthorized).
func (e *RedirectError) Is(target error) bool {
	return target == errors.ErrUnauthorized
}

// View is a protected screen. It only runs for an authenticated user.
type View func(ctx context.Context, user models.User) error

type Guard struct {
	session *Store
	log     logger.Logger
}

func NewGuard(s *Store, log logger.Logger) *Guard {
	return &Guard{session: s, log: log.WithFields(map[string]interface{}{"component": "guard"})}
}

// Check withholds content while Loading and never redirects in that state.
func (g *Guard) Check() Decision {
	snap := g.session.Snapshot()
	switch snap.State {
	case Authenticated:
		return Decision{Verdict: Allow, User: snap.User}
	case Unauthenticated:
		return Decision{Verdict: Redirect, To: LoginRoute}
	default:
		return Decision{Verdict: Wait}
	}
}

// Protect resolves a Loading session, then runs view only when allowed.
func (g *Guard) Protect(ctx context.Context, view View) error {
	d := g.Check()
	if d.Verdict == Wait {
		g.session.Load(ctx)
		d = g.Check()
	}
	switch d.Verdict {
	case Allow:
		return view(ctx, *d.User)
	case Redirect:
		g.log.Debug("Redirecting unauthenticated view", map[string]interface{}{"to": d.To})
		return &RedirectError{To: d.To}
	default:
		return errors.NewPreconditionError("Session is still loading")
	}
}
