package oauth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/internmatch/go-session"
)

// SessionFinalizer turns a verified provider profile into a local session.
// The gateway implements it; the result surfaces through the
// session-changed channel like any other sign-in.
type SessionFinalizer interface {
	CompleteOAuth(ctx context.Context, provider, email, name string) (session.Identity, error)
}

// Authenticator orchestrates redirect-based OAuth login flows.
type Authenticator struct {
	providers    map[string]Provider
	stateManager StateManager
	finalizer    SessionFinalizer
	activitySink session.ActivitySink
	config       AuthConfig
}

// AuthConfig configures the authenticator.
type AuthConfig struct {
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	RequireEmailVerified bool
}

// AuthOption configures the authenticator.
type AuthOption func(*Authenticator)

// NewAuthenticator creates an OAuth authenticator.
func NewAuthenticator(finalizer SessionFinalizer, config AuthConfig, opts ...AuthOption) *Authenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	a := &Authenticator{
		providers: make(map[string]Provider),
		finalizer: finalizer,
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.stateManager == nil {
		a.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	return a
}

// WithProvider registers an OAuth provider.
func WithProvider(provider Provider) AuthOption {
	return func(a *Authenticator) {
		if provider == nil {
			return
		}
		a.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) AuthOption {
	return func(a *Authenticator) {
		a.stateManager = sm
	}
}

// WithActivitySink sets the activity sink for audit logging.
func WithActivitySink(sink session.ActivitySink) AuthOption {
	return func(a *Authenticator) {
		a.activitySink = sink
	}
}

// Redirect contains the authorization URL for redirecting users.
type Redirect struct {
	URL      string
	State    string
	Provider string
}

// BeginAuth starts the OAuth flow for a provider.
func (a *Authenticator) BeginAuth(ctx context.Context, providerName, redirectTo string) (*Redirect, error) {
	provider, ok := a.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if redirectTo == "" {
		redirectTo = a.config.DefaultRedirectURL
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	state := &State{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		RedirectURL:  redirectTo,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(a.config.StateTTL).Unix(),
	}

	stateToken, err := a.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(computeCodeChallenge(codeVerifier), "S256"))

	if a.activitySink != nil {
		_ = a.activitySink.Record(ctx, session.ActivityEvent{
			EventType:  session.ActivityEventOAuthStarted,
			OccurredAt: time.Now(),
			Metadata:   map[string]any{"provider": providerName},
		})
	}

	return &Redirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// AuthRedirect returns the authorization URL for a provider. It satisfies
// the gateway's OAuth delegation hook.
func (a *Authenticator) AuthRedirect(ctx context.Context, providerName, redirectTo string) (string, error) {
	redirect, err := a.BeginAuth(ctx, providerName, redirectTo)
	if err != nil {
		return "", err
	}
	return redirect.URL, nil
}

// Result contains the outcome of a completed authentication.
type Result struct {
	Identity    session.Identity
	Provider    string
	Profile     *RemoteProfile
	RedirectURL string
}

// CompleteAuth finishes the OAuth flow after the provider callback.
func (a *Authenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*Result, error) {
	state, err := a.stateManager.Decode(stateToken)
	if err != nil {
		if goerrors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	provider, ok := a.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, err
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	if a.config.RequireEmailVerified && !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if a.finalizer == nil {
		return nil, session.ErrNoIdentity
	}

	identity, err := a.finalizer.CompleteOAuth(ctx, providerName, profile.Email, profile.Name)
	if err != nil {
		return nil, err
	}

	if a.activitySink != nil {
		_ = a.activitySink.Record(ctx, session.ActivityEvent{
			EventType:  session.ActivityEventOAuthCompleted,
			UserID:     identity.ID(),
			OccurredAt: time.Now(),
			Metadata: map[string]any{
				"provider":         providerName,
				"provider_user_id": profile.ProviderUserID,
			},
		})
	}

	return &Result{
		Identity:    identity,
		Provider:    providerName,
		Profile:     profile,
		RedirectURL: state.RedirectURL,
	}, nil
}

// ListProviders returns the names of all registered providers.
func (a *Authenticator) ListProviders() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	return names
}
