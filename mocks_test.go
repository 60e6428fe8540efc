package session_test

import (
	"context"
	"sync"

	session "github.com/internmatch/go-session"
)

type testIdentity struct {
	id    string
	email string
	name  string
}

func (t testIdentity) ID() string          { return t.id }
func (t testIdentity) Email() string       { return t.email }
func (t testIdentity) DisplayName() string { return t.name }

// stubGateway scripts gateway behavior per test via function fields. Any
// unset operation reports no session and no error.
type stubGateway struct {
	mu sync.Mutex

	signUp          func(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error)
	signIn          func(ctx context.Context, email, password string) (session.Identity, error)
	beginOAuth      func(ctx context.Context, provider, redirectTo string) (string, error)
	signOut         func(ctx context.Context) error
	currentIdentity func(ctx context.Context) (session.Identity, error)
	fetchProfile    func(ctx context.Context, identityID string) (*session.Profile, error)

	events chan session.SessionEvent
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		events: make(chan session.SessionEvent, 8),
	}
}

func (g *stubGateway) SignUp(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error) {
	if g.signUp == nil {
		return &session.SignUpOutcome{Status: session.SignUpActivated}, nil
	}
	return g.signUp(ctx, req)
}

func (g *stubGateway) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	if g.signIn == nil {
		return testIdentity{id: "user-1", email: email}, nil
	}
	return g.signIn(ctx, email, password)
}

func (g *stubGateway) BeginOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if g.beginOAuth == nil {
		return "https://provider.example/authorize", nil
	}
	return g.beginOAuth(ctx, provider, redirectTo)
}

func (g *stubGateway) SignOut(ctx context.Context) error {
	if g.signOut == nil {
		return nil
	}
	return g.signOut(ctx)
}

func (g *stubGateway) CurrentIdentity(ctx context.Context) (session.Identity, error) {
	if g.currentIdentity == nil {
		return nil, nil
	}
	return g.currentIdentity(ctx)
}

func (g *stubGateway) FetchProfile(ctx context.Context, identityID string) (*session.Profile, error) {
	if g.fetchProfile == nil {
		return nil, nil
	}
	return g.fetchProfile(ctx, identityID)
}

func (g *stubGateway) SessionChanges() (<-chan session.SessionEvent, func()) {
	return g.events, func() {}
}

type staticConfig struct {
	authEntry    string
	defaultAuthd string
	rejectedKey  string
	loadingView  string
}

func newStaticConfig() staticConfig {
	return staticConfig{
		authEntry:    "/auth",
		defaultAuthd: "/my-applications",
		rejectedKey:  "rejected_route",
		loadingView:  "loading",
	}
}

func (c staticConfig) GetAuthEntryPath() string     { return c.authEntry }
func (c staticConfig) GetDefaultAuthedPath() string { return c.defaultAuthd }
func (c staticConfig) GetRejectedRouteKey() string  { return c.rejectedKey }
func (c staticConfig) GetLoadingView() string       { return c.loadingView }
