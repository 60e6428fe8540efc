package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the gateway's authoritative user record. Implementations come
// from whatever backend issues sessions; this package only reads it.
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
}

// SignUpStatus discriminates the two successful sign-up outcomes. The
// gateway must tag the result explicitly rather than leaving callers to
// sniff the payload shape.
type SignUpStatus string

const (
	// SignUpActivated means the account is immediately active.
	SignUpActivated SignUpStatus = "activated"
	// SignUpPendingVerification means the account exists but the user still
	// has to confirm it (e.g. via an emailed link) before signing in.
	SignUpPendingVerification SignUpStatus = "pending_verification"
)

// SignUpOutcome is the tagged result of a successful gateway sign-up.
// Identity is set only when Status is SignUpActivated; Message carries the
// informational text for the pending case and travels on a separate channel
// from operation errors.
type SignUpOutcome struct {
	Status   SignUpStatus
	Identity Identity
	Message  string
}

// Activated reports whether the account is immediately usable.
func (o SignUpOutcome) Activated() bool {
	return o.Status == SignUpActivated
}

// SignUpRequest carries the fields collected by the registration form.
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	UserType    UserType
}

// SessionEventType enumerates the gateway's push notifications.
type SessionEventType string

const (
	SessionEventSignedIn       SessionEventType = "SIGNED_IN"
	SessionEventSignedOut      SessionEventType = "SIGNED_OUT"
	SessionEventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
	SessionEventUserUpdated    SessionEventType = "USER_UPDATED"
)

// SessionInfo is the session payload attached to a push event. Nil on
// signed-out events.
type SessionInfo struct {
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionEvent is a session-changed notification pushed by the gateway,
// delivered out-of-band relative to any request the store made.
type SessionEvent struct {
	Type    SessionEventType
	Session *SessionInfo
}

// Gateway is the external auth backend boundary. It performs credential
// verification, session issuance, and profile lookups; the store never
// talks to the network except through it.
type Gateway interface {
	// SignUp registers a new account and creates its profile rows. The
	// outcome is tagged: immediately active, or pending verification.
	SignUp(ctx context.Context, req SignUpRequest) (*SignUpOutcome, error)

	// SignIn verifies credentials and issues a session.
	SignIn(ctx context.Context, email, password string) (Identity, error)

	// BeginOAuth starts a redirect-based OAuth flow and returns the URL to
	// send the user to. The result of the flow arrives later through
	// SessionChanges, never as a return value.
	BeginOAuth(ctx context.Context, provider, redirectTo string) (string, error)

	// SignOut revokes the current session.
	SignOut(ctx context.Context) error

	// CurrentIdentity resolves the identity attached to the current
	// session. (nil, nil) means no session exists.
	CurrentIdentity(ctx context.Context) (Identity, error)

	// FetchProfile loads the profile record keyed by an identity id.
	// (nil, nil) means the profile row does not exist, which is a valid
	// degraded outcome, not an error.
	FetchProfile(ctx context.Context, identityID string) (*Profile, error)

	// SessionChanges subscribes to session-changed push events. The
	// release function must be called when the consumer shuts down.
	SessionChanges() (<-chan SessionEvent, func())
}

// Config holds the options the session core needs from its host.
type Config interface {
	GetAuthEntryPath() string
	GetDefaultAuthedPath() string
	GetRejectedRouteKey() string
	GetLoadingView() string
}

// ParseIdentityUUID parses an identity id as a UUID, for callers that key
// storage on uuid columns.
func ParseIdentityUUID(identity Identity) (uuid.UUID, error) {
	if identity == nil {
		return uuid.Nil, ErrNoIdentity
	}
	return uuid.Parse(identity.ID())
}

// DefaultLogger returns the fallback stdout logger used when no Logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
