package localgate

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"

	"github.com/internmatch/go-session"
)

// PendingVerificationMessage is the informational text returned with a
// pending sign-up outcome.
const PendingVerificationMessage = "Please check your email for a verification link to complete your signup."

const defaultTokenTTL = 24 * time.Hour

// OAuthStarter begins a redirect-based social login flow. The gateway
// delegates to it and stays out of provider specifics.
type OAuthStarter interface {
	AuthRedirect(ctx context.Context, provider, redirectTo string) (string, error)
}

// Gateway is the self-hosted auth backend. It verifies credentials against
// bun-managed tables, mints JWT access tokens, tracks active sessions in
// Redis, and pushes session-changed events to subscribers.
type Gateway struct {
	repos    RepositoryManager
	tokens   *TokenService
	registry *SessionRegistry
	events   *broadcaster
	oauth    OAuthStarter
	logger   session.Logger

	requireVerification bool
	tokenTTL            time.Duration

	mu             sync.Mutex
	currentToken   string
	currentClaims  *AccessClaims
	currentSession *session.SessionInfo
}

var _ session.Gateway = (*Gateway)(nil)

type GatewayOption func(*Gateway)

func WithGatewayLogger(logger session.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithOAuthStarter wires a social login provider registry.
func WithOAuthStarter(starter OAuthStarter) GatewayOption {
	return func(g *Gateway) {
		g.oauth = starter
	}
}

// WithVerificationRequired makes sign-up leave accounts pending until the
// emailed confirmation link is followed.
func WithVerificationRequired(required bool) GatewayOption {
	return func(g *Gateway) {
		g.requireVerification = required
	}
}

func WithTokenTTL(ttl time.Duration) GatewayOption {
	return func(g *Gateway) {
		if ttl > 0 {
			g.tokenTTL = ttl
		}
	}
}

func NewGateway(repos RepositoryManager, tokens *TokenService, registry *SessionRegistry, opts ...GatewayOption) *Gateway {
	if repos == nil {
		panic("localgate: repository manager is required")
	}
	if tokens == nil {
		panic("localgate: token service is required")
	}

	g := &Gateway{
		repos:    repos,
		tokens:   tokens,
		registry: registry,
		logger:   session.DefaultLogger(),
		tokenTTL: defaultTokenTTL,
	}

	for _, opt := range opts {
		opt(g)
	}

	g.events = newBroadcaster(g.logger)

	return g
}

// SignUp registers an account and its profile rows in one transaction.
// When verification is required the account stays dormant and the outcome
// is tagged pending; otherwise a session is established immediately.
func (g *Gateway) SignUp(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error) {
	userType, ok := session.ParseUserType(string(req.UserType))
	if !ok {
		return nil, goerrors.New("unsupported user type", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"user_type": req.UserType})
	}

	record := &IdentityRecord{}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := g.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := g.repos.Identities().GetByEmailTx(ctx, tx, req.Email); err == nil && existing != nil {
			return session.ErrDuplicateAccount
		} else if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record.Email = req.Email
		record.FullName = req.DisplayName
		record.PasswordHash = hash
		record.Provider = "local"
		record.EmailVerified = !g.requireVerification
		if id, err := hashid.NewUUID(req.Email); err == nil {
			record.ID = id
		}

		if record, err = g.repos.Identities().CreateTx(ctx, tx, record); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		profile := &ProfileRecord{
			ID:       record.ID,
			FullName: req.DisplayName,
			UserType: userType,
		}
		if _, err = g.repos.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create profile")
		}

		switch userType {
		case session.UserTypeStudent:
			if _, err = g.repos.Students().CreateTx(ctx, tx, &StudentRecord{ID: record.ID}); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create student record")
			}
		case session.UserTypeCompany:
			if _, err = g.repos.Companies().CreateTx(ctx, tx, &CompanyRecord{ID: record.ID, CompanyName: req.DisplayName}); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create company record")
			}
		}

		if g.requireVerification {
			expires := time.Now().Add(48 * time.Hour)
			token := &VerificationToken{
				ID:         uuid.New(),
				IdentityID: record.ID,
				Token:      uuid.NewString(),
				ExpiresAt:  &expires,
			}
			if _, err = g.repos.VerificationTokens().CreateTx(ctx, tx, token); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create verification token")
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign up transaction failed")
	}

	if g.requireVerification {
		g.logger.Info("account created pending verification", "email", record.Email)
		return &session.SignUpOutcome{
			Status:  session.SignUpPendingVerification,
			Message: PendingVerificationMessage,
		}, nil
	}

	identity, err := g.establishSession(ctx, record, userType)
	if err != nil {
		return nil, err
	}

	return &session.SignUpOutcome{
		Status:   session.SignUpActivated,
		Identity: identity,
	}, nil
}

// SignIn verifies credentials and establishes a session. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (session.Identity, error) {
	record, err := g.repos.Identities().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, session.ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		return nil, session.ErrInvalidCredentials
	}

	if !record.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := g.repos.Identities().TrackSuccessfulLogin(ctx, record.ID); err != nil {
		g.logger.Warn("failed to track successful login", "error", err)
	}

	return g.establishSession(ctx, record, g.userTypeOf(ctx, record.ID))
}

// BeginOAuth hands off to the configured social login registry.
func (g *Gateway) BeginOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if g.oauth == nil {
		return "", goerrors.New("no OAuth provider registry configured", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	url, err := g.oauth.AuthRedirect(ctx, provider, redirectTo)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryAuth, "could not start OAuth flow").
			WithMetadata(map[string]any{"provider": provider})
	}
	return url, nil
}

// CompleteOAuth finalizes a social login callback. It finds or creates an
// identity for the provider email, then establishes a session exactly as a
// password sign-in would. The caller learns the result through the
// session-changed channel.
func (g *Gateway) CompleteOAuth(ctx context.Context, provider, email, name string) (session.Identity, error) {
	record, err := g.repos.Identities().GetByEmail(ctx, email)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
		}

		record = &IdentityRecord{
			Email:         email,
			FullName:      name,
			Provider:      provider,
			EmailVerified: true,
		}
		if id, herr := hashid.NewUUID(email); herr == nil {
			record.ID = id
		}

		err = g.repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if record, err = g.repos.Identities().CreateTx(ctx, tx, record); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
			}
			// Social sign-ups default to student until the user picks a
			// role on first run.
			profile := &ProfileRecord{ID: record.ID, FullName: name, UserType: session.UserTypeStudent}
			if _, err = g.repos.Profiles().CreateTx(ctx, tx, profile); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create profile")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return g.establishSession(ctx, record, g.userTypeOf(ctx, record.ID))
}

// SignOut revokes the active session. Local state is always cleared and a
// signed-out event is always published, even when revocation fails.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	claims := g.currentClaims
	g.currentToken = ""
	g.currentClaims = nil
	g.currentSession = nil
	g.mu.Unlock()

	var revokeErr error
	if claims != nil && g.registry != nil {
		revokeErr = g.registry.Revoke(ctx, claims.ID)
	}

	g.events.publish(session.SessionEvent{Type: session.SessionEventSignedOut})

	return revokeErr
}

// CurrentIdentity resolves the identity behind the active session.
// (nil, nil) means no usable session exists.
func (g *Gateway) CurrentIdentity(ctx context.Context) (session.Identity, error) {
	g.mu.Lock()
	token := g.currentToken
	g.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	claims, err := g.ValidateAccess(ctx, token)
	if err != nil {
		if goerrors.Is(err, ErrSessionRevoked) || session.IsAuthRejection(err) {
			g.dropLocalSession()
			return nil, nil
		}
		return nil, err
	}

	record, err := g.repos.Identities().GetByID(ctx, claims.UID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			g.dropLocalSession()
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session identity")
	}

	return viewOf(record), nil
}

// ValidateAccess validates a raw token and confirms its session is still
// registered. Returns ErrSessionRevoked for a valid token whose session
// was revoked.
func (g *Gateway) ValidateAccess(ctx context.Context, tokenString string) (*AccessClaims, error) {
	claims, err := g.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	if g.registry == nil {
		return claims, nil
	}

	identityID, err := g.registry.Lookup(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if identityID == "" {
		return nil, ErrSessionRevoked
	}

	return claims, nil
}

// FetchProfile loads the profile row and merges role-specific fields into
// its metadata. A missing profile row is (nil, nil), not an error.
func (g *Gateway) FetchProfile(ctx context.Context, identityID string) (*session.Profile, error) {
	record, err := g.repos.Profiles().GetByID(ctx, identityID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile")
	}

	profile := &session.Profile{
		IdentityID:  record.ID.String(),
		DisplayName: record.FullName,
		UserType:    record.UserType,
		Metadata:    map[string]any{},
		CreatedAt:   record.CreatedAt,
	}
	if record.Phone != "" {
		profile.Metadata["phone_number"] = record.Phone
	}

	switch record.UserType {
	case session.UserTypeStudent:
		student, err := g.repos.Students().GetByID(ctx, identityID)
		if err == nil {
			profile.Metadata["major"] = student.Major
			profile.Metadata["university"] = student.University
			profile.Metadata["grad_year"] = student.GradYear
			profile.Metadata["resume_url"] = student.ResumeURL
		} else if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load student record")
		}
	case session.UserTypeCompany:
		company, err := g.repos.Companies().GetByID(ctx, identityID)
		if err == nil {
			profile.Metadata["company_name"] = company.CompanyName
			profile.Metadata["industry"] = company.Industry
			profile.Metadata["website"] = company.Website
		} else if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load company record")
		}
	}

	return profile, nil
}

// ProfileUpdate carries the editable profile fields. Phone numbers are
// normalized to E.164 before storage.
type ProfileUpdate struct {
	DisplayName string
	Phone       string
	PhoneRegion string
}

// UpdateProfile applies a profile edit and publishes a user-updated event
// when it touches the active session's identity.
func (g *Gateway) UpdateProfile(ctx context.Context, identityID string, update ProfileUpdate) error {
	record, err := g.repos.Profiles().GetByID(ctx, identityID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile for update")
	}

	if update.DisplayName != "" {
		record.FullName = update.DisplayName
	}

	if update.Phone != "" {
		region := update.PhoneRegion
		if region == "" {
			region = "US"
		}
		num, err := phonenumbers.Parse(update.Phone, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return ErrSessionPhoneError(update.Phone, region)
		}
		record.Phone = phonenumbers.Format(num, phonenumbers.E164)
	}

	if _, err := g.repos.Profiles().Update(ctx, record, repository.UpdateByID(identityID)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	g.mu.Lock()
	info := g.currentSession
	g.mu.Unlock()

	if info != nil && info.Identity != nil && info.Identity.ID() == identityID {
		g.events.publish(session.SessionEvent{Type: session.SessionEventUserUpdated, Session: info})
	}

	return nil
}

// SessionChanges subscribes to the gateway's push channel.
func (g *Gateway) SessionChanges() (<-chan session.SessionEvent, func()) {
	return g.events.subscribe()
}

// Close tears down the push channel. In-flight operations finish normally.
func (g *Gateway) Close() {
	g.events.close()
}

func (g *Gateway) establishSession(ctx context.Context, record *IdentityRecord, userType session.UserType) (session.Identity, error) {
	token, claims, err := g.tokens.Generate(record, userType)
	if err != nil {
		return nil, err
	}

	if g.registry != nil {
		if err := g.registry.Register(ctx, claims.ID, record.ID.String(), g.tokenTTL); err != nil {
			return nil, err
		}
	}

	identity := viewOf(record)
	info := &session.SessionInfo{
		Identity:  identity,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	g.mu.Lock()
	g.currentToken = token
	g.currentClaims = claims
	g.currentSession = info
	g.mu.Unlock()

	g.events.publish(session.SessionEvent{Type: session.SessionEventSignedIn, Session: info})

	return identity, nil
}

func (g *Gateway) dropLocalSession() {
	g.mu.Lock()
	g.currentToken = ""
	g.currentClaims = nil
	g.currentSession = nil
	g.mu.Unlock()
}

// userTypeOf resolves the profile role for token claims. Missing profile
// rows fall back to an empty type rather than failing the sign-in.
func (g *Gateway) userTypeOf(ctx context.Context, id uuid.UUID) session.UserType {
	record, err := g.repos.Profiles().GetByID(ctx, id.String())
	if err != nil {
		return ""
	}
	return record.UserType
}

// ErrSessionPhoneError decorates ErrInvalidPhone with the offending input.
func ErrSessionPhoneError(phone, region string) error {
	return goerrors.Wrap(ErrInvalidPhone, goerrors.CategoryValidation, "phone number failed validation").
		WithMetadata(map[string]any{"phone": phone, "region": region})
}
