package client

import (
	"context"
	"errors"
	"sync"

	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/user"
)

var ErrNoSession = errors.New("no active session")

// Session is the signed-in state of one client. It lives from Start to End
// and is passed explicitly to the guard and the role editor.
type Session struct {
	api *API

	mu        sync.RWMutex
	token     string
	user      *user.User
	grants    *authz.Grants
	listeners map[int]func()
	nextID    int
}

func NewSession(api *API) *Session {
	return &Session{
		api:       api,
		listeners: make(map[int]func()),
	}
}

// Start signs in and loads the current user. Grants are resolved lazily.
func (s *Session) Start(ctx context.Context, email, password string) error {
	tokens, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.StartWithToken(ctx, tokens.AccessToken)
}

// StartWithToken opens a session for an already issued access token.
func (s *Session) StartWithToken(ctx context.Context, token string) error {
	u, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.user = u
	s.grants = nil
	s.mu.Unlock()

	s.notify()
	return nil
}

// End signs out. The server-side logout is best effort; local state is
// always cleared.
func (s *Session) End(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.token = ""
	s.user = nil
	s.grants = nil
	s.mu.Unlock()

	if token != "" {
		_ = s.api.Logout(ctx, token)
	}
	s.notify()
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0
	}
	return s.user.ID
}

func (s *Session) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Grants returns the resolved grants, fetching them on first use.
func (s *Session) Grants(ctx context.Context) (authz.Grants, error) {
	s.mu.RLock()
	token, u, cached := s.token, s.user, s.grants
	s.mu.RUnlock()

	if token == "" || u == nil {
		return authz.Grants{}, ErrNoSession
	}
	if cached != nil {
		return *cached, nil
	}

	g, err := s.api.FetchPermissions(ctx, token, u.ID)
	if err != nil {
		return authz.Grants{}, err
	}

	s.mu.Lock()
	if s.token == token {
		s.grants = &g
	}
	s.mu.Unlock()
	return g, nil
}

// SetGrants replaces the resolved grants and notifies listeners.
func (s *Session) SetGrants(g authz.Grants) {
	s.mu.Lock()
	s.grants = &g
	s.mu.Unlock()
	s.notify()
}

// Refresh refetches the grants of the session user.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	token, u := s.token, s.user
	s.mu.RUnlock()
	if token == "" || u == nil {
		return ErrNoSession
	}

	g, err := s.api.FetchPermissions(ctx, token, u.ID)
	if err != nil {
		return err
	}
	s.SetGrants(g)
	return nil
}

// OnChange registers fn to run after sign-in, sign-out and grant changes.
// The returned func unregisters it.
func (s *Session) OnChange(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
