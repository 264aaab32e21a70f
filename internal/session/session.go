// Package session tracks who is signed in. It owns the persisted token pair and
// the authentication state consulted by the route guard.
package session

import (
	"context"
	"strings"
	"sync"

	"deal-analyzer-client/internal/api"
	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/common/metrics"
	"deal-analyzer-client/internal/models"
)

type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

var states = []State{Loading, Authenticated, Unauthenticated}

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Backend is the subset of the resource client the session needs.
type Backend interface {
	Login(ctx context.Context, creds models.Credentials) api.Result[models.Tokens]
	RefreshToken(ctx context.Context, refresh string) api.Result[models.Tokens]
	CurrentUser(ctx context.Context) api.Result[models.User]
	Register(ctx context.Context, reg models.Registration) api.Result[models.Ack]
	Cache() *cache.Store
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	State State
	User  *models.User
	Err   *errors.StandardError
}

type Store struct {
	mu    sync.RWMutex
	state State
	user  *models.User
	err   *errors.StandardError

	backend Backend
	tokens  TokenStore
	log     logger.Logger
}

// New returns a store in the Loading state. Call Load to resolve it.
func New(backend Backend, tokens TokenStore, log logger.Logger) *Store {
	s := &Store{
		backend: backend,
		tokens:  tokens,
		log:     log.WithFields(map[string]interface{}{"component": "session"}),
	}
	s.set(Loading, nil, nil)
	return s
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.state, Err: s.err}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load asks the backend who the stored token belongs to. One attempt: any
// failure or an empty user leaves the session Unauthenticated.
func (s *Store) Load(ctx context.Context) Snapshot {
	res := s.backend.CurrentUser(ctx)
	switch {
	case !res.OK():
		s.log.Info("Session not authenticated", map[string]interface{}{"reason": string(res.Err.Code)})
		s.set(Unauthenticated, nil, res.Err)
	case res.Data.ID == 0 && res.Data.Username == "":
		s.set(Unauthenticated, nil, nil)
	default:
		u := res.Data
		s.log.Debug("Session authenticated", map[string]interface{}{"user": u.Username})
		s.set(Authenticated, &u, nil)
	}
	return s.Snapshot()
}

// Login exchanges credentials for tokens, persists them, then reloads the user.
func (s *Store) Login(ctx context.Context, username, password string) (Snapshot, error) {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "Username is required"
	}
	if password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return s.Snapshot(), errors.NewValidationError(fields)
	}

	res := s.backend.Login(ctx, models.Credentials{Username: strings.TrimSpace(username), Password: password})
	if !res.OK() {
		s.set(Unauthenticated, nil, res.Err)
		return s.Snapshot(), res.Err
	}
	if err := s.tokens.Save(ctx, res.Data); err != nil {
		stdErr := errors.AsStandardError(err)
		s.set(Unauthenticated, nil, stdErr)
		return s.Snapshot(), stdErr
	}

	snap := s.Load(ctx)
	if snap.State != Authenticated {
		if snap.Err != nil {
			return snap, snap.Err
		}
		return snap, errors.NewPreconditionError("Login succeeded but no user was returned")
	}
	s.log.Info("Logged in", map[string]interface{}{"user": snap.User.Username})
	return snap, nil
}

// Logout forgets the tokens and every cached resource.
func (s *Store) Logout(ctx context.Context) error {
	err := s.tokens.Clear(ctx)
	s.backend.Cache().Reset()
	s.set(Unauthenticated, nil, nil)
	if err != nil {
		return errors.AsStandardError(err)
	}
	s.log.Info("Logged out", nil)
	return nil
}

// Register creates an account. It does not sign the user in.
func (s *Store) Register(ctx context.Context, reg models.Registration) (models.Ack, error) {
	fields := map[string]string{}
	if strings.TrimSpace(reg.Username) == "" {
		fields["username"] = "Username is required"
	}
	if strings.TrimSpace(reg.Email) == "" {
		fields["email"] = "Email is required"
	}
	if reg.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return models.Ack{}, errors.NewValidationError(fields)
	}
	return s.backend.Register(ctx, reg).Unwrap()
}

// Refresh exchanges the stored refresh token for a new access token. It is
// never called automatically.
func (s *Store) Refresh(ctx context.Context) (Snapshot, error) {
	current, err := s.tokens.Load(ctx)
	if err != nil {
		return s.Snapshot(), errors.AsStandardError(err)
	}
	if current.Refresh == "" {
		return s.Snapshot(), errors.NewPreconditionError("No refresh token stored. Please log in.")
	}
	res := s.backend.RefreshToken(ctx, current.Refresh)
	if !res.OK() {
		return s.Snapshot(), res.Err
	}
	next := models.Tokens{Access: res.Data.Access, Refresh: current.Refresh}
	if res.Data.Refresh != "" {
		next.Refresh = res.Data.Refresh
	}
	if err := s.tokens.Save(ctx, next); err != nil {
		return s.Snapshot(), errors.AsStandardError(err)
	}
	s.backend.Cache().Invalidate(cache.T(cache.TypeUser))
	return s.Load(ctx), nil
}

// HandleUnauthorized is wired to the transport's 401 hook. Tokens are kept so
// an explicit Refresh remains possible.
func (s *Store) HandleUnauthorized() {
	s.mu.RLock()
	was := s.state
	s.mu.RUnlock()
	if was == Authenticated {
		s.log.Warn("Backend rejected the session", nil)
	}
	s.set(Unauthenticated, nil, errors.NewAPIError("session", 401, ""))
}

func (s *Store) set(state State, user *models.User, err *errors.StandardError) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.err = err
	s.mu.Unlock()

	for _, st := range states {
		v := 0.0
		if st == state {
			v = 1
		}
		metrics.SessionState.WithLabelValues(st.String()).Set(v)
	}
}
