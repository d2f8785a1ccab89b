package client

import (
	"context"
	"net/url"
	"sync"
)

type State int

const (
	Loading State = iota
	Unauthenticated
	Authorized
	Denied
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

const (
	DefaultSignInPath = "/login"
	DefaultDeniedPath = "/access-denied"
)

// Route is a protected view. An empty RequiredPermission means any signed-in
// user may enter.
type Route struct {
	Path               string
	RequiredPermission string
	Component          string
	Description        string
}

// Decision is the outcome of one evaluation. Redirect is empty when the
// route may be rendered.
type Decision struct {
	State    State
	Redirect string
}

// AccessGuard gates navigation to protected views. Its answers are a UX
// shortcut only; the server enforces every permission again.
type AccessGuard struct {
	session    *Session
	notifier   *Notifier
	signInPath string
	deniedPath string

	mu       sync.Mutex
	route    Route
	decision Decision
	onChange func(Decision)
	stop     func()
}

type GuardOption func(*AccessGuard)

func WithSignInPath(path string) GuardOption {
	return func(g *AccessGuard) { g.signInPath = path }
}

func WithDeniedPath(path string) GuardOption {
	return func(g *AccessGuard) { g.deniedPath = path }
}

// WithOnChange registers a callback invoked after every evaluation.
func WithOnChange(fn func(Decision)) GuardOption {
	return func(g *AccessGuard) { g.onChange = fn }
}

// NewAccessGuard creates a guard that re-evaluates the current route whenever
// the session signs in, signs out or changes grants.
func NewAccessGuard(session *Session, notifier *Notifier, opts ...GuardOption) *AccessGuard {
	g := &AccessGuard{
		session:    session,
		notifier:   notifier,
		signInPath: DefaultSignInPath,
		deniedPath: DefaultDeniedPath,
		decision:   Decision{State: Loading},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.stop = session.OnChange(func() {
		g.mu.Lock()
		hasRoute := g.route.Path != ""
		g.mu.Unlock()
		if hasRoute {
			g.evaluate(context.Background(), false)
		}
	})
	return g
}

// Close detaches the guard from its session.
func (g *AccessGuard) Close() {
	if g.stop != nil {
		g.stop()
	}
}

// Navigate starts a new navigation to route.
func (g *AccessGuard) Navigate(ctx context.Context, route Route) Decision {
	g.mu.Lock()
	g.route = route
	g.decision = Decision{State: Loading}
	g.mu.Unlock()

	return g.evaluate(ctx, true)
}

// SetRoute changes the required permission of the current view and
// re-evaluates. An unchanged route keeps the current decision.
func (g *AccessGuard) SetRoute(ctx context.Context, route Route) Decision {
	g.mu.Lock()
	if route == g.route && g.decision.State != Loading {
		d := g.decision
		g.mu.Unlock()
		return d
	}
	fresh := route.Path != g.route.Path || route.RequiredPermission != g.route.RequiredPermission
	g.route = route
	g.mu.Unlock()

	return g.evaluate(ctx, fresh)
}

func (g *AccessGuard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision.State
}

func (g *AccessGuard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// evaluate resolves grants and moves the state machine. A denial is recorded
// once per navigation: fresh marks a new navigation.
func (g *AccessGuard) evaluate(ctx context.Context, fresh bool) Decision {
	g.mu.Lock()
	route := g.route
	wasDenied := g.decision.State == Denied
	g.mu.Unlock()

	var d Decision
	switch {
	case !g.session.Authenticated():
		d = g.unauthenticated(route)
	default:
		grants, err := g.session.Grants(ctx)
		switch {
		case err != nil:
			d = g.unauthenticated(route)
		case route.RequiredPermission == "" || grants.Has(route.RequiredPermission):
			d = Decision{State: Authorized}
		default:
			if fresh || !wasDenied {
				g.notifier.Record(DenialEvent{
					Path:               route.Path,
					RequiredPermission: route.RequiredPermission,
					Component:          route.Component,
					Description:        route.Description,
				})
			}
			d = Decision{State: Denied, Redirect: g.deniedPath}
		}
	}

	g.mu.Lock()
	if g.route != route {
		// superseded by a newer navigation
		d = g.decision
		g.mu.Unlock()
		return d
	}
	g.decision = d
	onChange := g.onChange
	g.mu.Unlock()

	if onChange != nil {
		onChange(d)
	}
	return d
}

func (g *AccessGuard) unauthenticated(route Route) Decision {
	redirect := g.signInPath
	if route.Path != "" {
		redirect += "?from=" + url.QueryEscape(route.Path)
	}
	return Decision{State: Unauthenticated, Redirect: redirect}
}
