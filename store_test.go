package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/internmatch/go-session"
)

func TestNewStoreStartsUnknownAndLoading(t *testing.T) {
	store := session.NewStore(newStubGateway())

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnknown, snap.Phase)
	assert.True(t, snap.IsLoading)
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	assert.NoError(t, snap.Err)
}

func TestSignInSuccessAuthenticates(t *testing.T) {
	gateway := newStubGateway()
	gateway.signIn = func(ctx context.Context, email, password string) (session.Identity, error) {
		return testIdentity{id: "user-1", email: email, name: "Ada"}, nil
	}

	store := session.NewStore(gateway)

	user, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseAuthenticated, snap.Phase)
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.NoError(t, snap.Err)
}

func TestSignInRejectionRecordsRenderableMessage(t *testing.T) {
	gateway := newStubGateway()
	gateway.signIn = func(ctx context.Context, email, password string) (session.Identity, error) {
		return nil, session.ErrInvalidCredentials
	}

	store := session.NewStore(gateway)

	_, err := store.SignIn(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, "Invalid login credentials", snap.ErrorMessage())
}

func TestSignInTransportFailureIsSurfacedTheSameWay(t *testing.T) {
	gateway := newStubGateway()
	gateway.signIn = func(ctx context.Context, email, password string) (session.Identity, error) {
		return nil, errors.New("connection refused")
	}

	store := session.NewStore(gateway)

	_, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	require.Error(t, err)
	assert.True(t, session.IsTransportFailure(err))

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.Error(t, snap.Err)
}

func TestSignInRejectsOverlappingOperation(t *testing.T) {
	block := make(chan struct{})
	gateway := newStubGateway()
	gateway.signIn = func(ctx context.Context, email, password string) (session.Identity, error) {
		<-block
		return testIdentity{id: "user-1", email: email}, nil
	}

	store := session.NewStore(gateway)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.SignIn(context.Background(), "ada@example.com", "pw")
	}()

	require.Eventually(t, func() bool {
		return store.Snapshot().IsLoading
	}, time.Second, 5*time.Millisecond)

	_, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	assert.ErrorIs(t, err, session.ErrOperationInFlight)

	close(block)
	<-done

	assert.True(t, store.Snapshot().IsAuthenticated)
}

func TestSignUpActivatedAuthenticates(t *testing.T) {
	gateway := newStubGateway()
	gateway.signUp = func(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error) {
		return &session.SignUpOutcome{
			Status:   session.SignUpActivated,
			Identity: testIdentity{id: "user-9", email: req.Email},
		}, nil
	}

	store := session.NewStore(gateway)

	outcome, err := store.SignUp(context.Background(), session.SignUpRequest{
		Email:    "new@example.com",
		Password: "pw",
		UserType: session.UserTypeStudent,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Activated())

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseAuthenticated, snap.Phase)
	assert.True(t, snap.IsAuthenticated)
	require.NotNil(t, snap.User)
	assert.Equal(t, "user-9", snap.User.ID)
}

func TestSignUpPendingVerificationIsNotAnError(t *testing.T) {
	const message = "Please check your email for a verification link to complete your signup."

	gateway := newStubGateway()
	gateway.signUp = func(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error) {
		return &session.SignUpOutcome{
			Status:  session.SignUpPendingVerification,
			Message: message,
		}, nil
	}

	store := session.NewStore(gateway)

	outcome, err := store.SignUp(context.Background(), session.SignUpRequest{
		Email:    "new@example.com",
		Password: "pw",
		UserType: session.UserTypeStudent,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Activated())
	assert.Equal(t, message, outcome.Message)

	// The message travels on the outcome, never the error field.
	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.False(t, snap.IsAuthenticated)
	assert.NoError(t, snap.Err)
	assert.Nil(t, snap.User)
}

func TestSignUpFailureSettlesUnauthenticated(t *testing.T) {
	gateway := newStubGateway()
	gateway.signUp = func(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error) {
		return nil, session.ErrDuplicateAccount
	}

	store := session.NewStore(gateway)

	_, err := store.SignUp(context.Background(), session.SignUpRequest{Email: "dup@example.com"})
	require.Error(t, err)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.Error(t, snap.Err)
}

func TestSignUpNilOutcomeIsATransportFailure(t *testing.T) {
	gateway := newStubGateway()
	gateway.signUp = func(ctx context.Context, req session.SignUpRequest) (*session.SignUpOutcome, error) {
		return nil, nil
	}

	store := session.NewStore(gateway)

	outcome, err := store.SignUp(context.Background(), session.SignUpRequest{Email: "new@example.com"})
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.True(t, session.IsTransportFailure(err))

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.Error(t, snap.Err)
}

func TestSignOutAlwaysClearsLocalState(t *testing.T) {
	gateway := newStubGateway()
	store := session.NewStore(gateway)

	_, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.True(t, store.Snapshot().IsAuthenticated)

	gateway.signOut = func(ctx context.Context) error {
		return errors.New("revocation endpoint unreachable")
	}

	err = store.SignOut(context.Background())
	assert.NoError(t, err)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	assert.NoError(t, snap.Err)
}

func TestSignOutWhileSignedOutIsIdempotent(t *testing.T) {
	store := session.NewStore(newStubGateway())

	require.NoError(t, store.SignOut(context.Background()))
	require.NoError(t, store.SignOut(context.Background()))

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.False(t, snap.IsAuthenticated)
}

func TestFetchWithoutSessionResolvesUnauthenticated(t *testing.T) {
	store := session.NewStore(newStubGateway())

	user, err := store.FetchCurrentUserAndProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.False(t, snap.IsLoading)
	assert.NoError(t, snap.Err)
}

func TestFetchWithMissingProfileDegradesToPartialUser(t *testing.T) {
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}
	// fetchProfile left nil: missing profile row, a valid outcome.

	store := session.NewStore(gateway)

	user, err := store.FetchCurrentUserAndProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Nil(t, user.Profile)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseAuthenticated, snap.Phase)
	assert.True(t, snap.IsAuthenticated)
	assert.NoError(t, snap.Err)
}

func TestFetchProfileFailureIsARejection(t *testing.T) {
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}
	gateway.fetchProfile = func(ctx context.Context, identityID string) (*session.Profile, error) {
		return nil, errors.New("profiles table unavailable")
	}

	store := session.NewStore(gateway)

	_, err := store.FetchCurrentUserAndProfile(context.Background())
	require.Error(t, err)

	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.Error(t, snap.Err)
}

func TestFetchResolvesProfileForIdentity(t *testing.T) {
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}
	gateway.fetchProfile = func(ctx context.Context, identityID string) (*session.Profile, error) {
		return &session.Profile{
			IdentityID:  identityID,
			DisplayName: "Ada",
			UserType:    session.UserTypeStudent,
		}, nil
	}

	store := session.NewStore(gateway)

	user, err := store.FetchCurrentUserAndProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user.Profile)
	assert.True(t, user.IsStudent())
	assert.Equal(t, "Ada", user.DisplayName())
}

func TestStaleFetchIsDiscardedAfterSignOutPush(t *testing.T) {
	release := make(chan struct{})
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		<-release
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}

	store := session.NewStore(gateway)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.FetchCurrentUserAndProfile(context.Background())
	}()

	require.Eventually(t, func() bool {
		return store.Snapshot().IsLoading
	}, time.Second, 5*time.Millisecond)

	// Sign-out push lands while the fetch is still in flight.
	store.HandleSessionChanged(context.Background(), session.SessionEvent{
		Type: session.SessionEventSignedOut,
	})

	close(release)
	<-done

	// The stale fetch result must not resurrect the session.
	snap := store.Snapshot()
	assert.Equal(t, session.PhaseUnauthenticated, snap.Phase)
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
}

func TestNewerFetchSupersedesOlderOne(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	first := make(chan struct{})

	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()

		if call == 1 {
			<-first
			return testIdentity{id: "stale-user", email: "old@example.com"}, nil
		}
		return testIdentity{id: "fresh-user", email: "new@example.com"}, nil
	}

	store := session.NewStore(gateway)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.FetchCurrentUserAndProfile(context.Background())
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	_, err := store.FetchCurrentUserAndProfile(context.Background())
	require.NoError(t, err)

	close(first)
	<-done

	snap := store.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "fresh-user", snap.User.ID)
	assert.Equal(t, session.PhaseAuthenticated, snap.Phase)
}

func TestSessionChangedWithSessionTriggersProfileResolution(t *testing.T) {
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}
	gateway.fetchProfile = func(ctx context.Context, identityID string) (*session.Profile, error) {
		return &session.Profile{IdentityID: identityID, UserType: session.UserTypeCompany}, nil
	}

	store := session.NewStore(gateway)

	store.HandleSessionChanged(context.Background(), session.SessionEvent{
		Type: session.SessionEventSignedIn,
		Session: &session.SessionInfo{
			Identity: testIdentity{id: "user-1", email: "ada@example.com"},
		},
	})

	require.Eventually(t, func() bool {
		snap := store.Snapshot()
		return snap.Phase == session.PhaseAuthenticated && snap.User != nil && snap.User.Profile != nil
	}, time.Second, 5*time.Millisecond)

	assert.True(t, store.Snapshot().User.IsCompany())
}

func TestSignInPushTriggeredFetchSurvivesTheSignInSettling(t *testing.T) {
	var signedIn atomic.Bool
	settled := make(chan struct{})

	gateway := newStubGateway()
	gateway.signIn = func(ctx context.Context, email, password string) (session.Identity, error) {
		// The gateway publishes the push event before SignIn returns,
		// the way a local gateway establishing a session does.
		signedIn.Store(true)
		gateway.events <- session.SessionEvent{
			Type: session.SessionEventSignedIn,
			Session: &session.SessionInfo{
				Identity: testIdentity{id: "user-1", email: email},
			},
		}
		return testIdentity{id: "user-1", email: email}, nil
	}
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		if !signedIn.Load() {
			return nil, nil
		}
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}
	gateway.fetchProfile = func(ctx context.Context, identityID string) (*session.Profile, error) {
		// Resolve only after the sign-in operation has settled.
		<-settled
		return &session.Profile{
			IdentityID:  identityID,
			DisplayName: "Ada",
			UserType:    session.UserTypeStudent,
		}, nil
	}

	store := session.NewStore(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- store.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		snap := store.Snapshot()
		return snap.Phase == session.PhaseUnauthenticated && !snap.IsLoading
	}, time.Second, 5*time.Millisecond)

	user, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, user)
	close(settled)

	// The fetch the push event triggered belongs to this sign-in's
	// identity; it must land instead of being thrown away, leaving the
	// profile resolved.
	require.Eventually(t, func() bool {
		snap := store.Snapshot()
		return snap.Phase == session.PhaseAuthenticated &&
			snap.User != nil && snap.User.Profile != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Ada", store.Snapshot().User.DisplayName())

	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)
}

func TestRunProcessesPushEventsInOrder(t *testing.T) {
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		return nil, nil
	}

	store := session.NewStore(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- store.Run(ctx)
	}()

	gateway.events <- session.SessionEvent{
		Type: session.SessionEventSignedIn,
		Session: &session.SessionInfo{
			Identity: testIdentity{id: "user-1", email: "ada@example.com"},
		},
	}
	gateway.events <- session.SessionEvent{Type: session.SessionEventSignedOut}

	// The trailing sign-out wins regardless of how long the sign-in's
	// profile fetch takes.
	require.Eventually(t, func() bool {
		snap := store.Snapshot()
		return snap.Phase == session.PhaseUnauthenticated && !snap.IsLoading
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)
}

func TestSubscribeFiresImmediatelyAndOnChange(t *testing.T) {
	store := session.NewStore(newStubGateway())

	var mu sync.Mutex
	var seen []session.Phase
	unsubscribe := store.Subscribe(func(snap session.Snapshot) {
		mu.Lock()
		seen = append(seen, snap.Phase)
		mu.Unlock()
	})

	mu.Lock()
	require.Len(t, seen, 1)
	assert.Equal(t, session.PhaseUnknown, seen[0])
	mu.Unlock()

	_, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, session.PhaseAuthenticated, seen[len(seen)-1])
	count := len(seen)
	mu.Unlock()

	unsubscribe()

	require.NoError(t, store.SignOut(context.Background()))

	mu.Lock()
	assert.Len(t, seen, count)
	mu.Unlock()
}

func TestActivityEventsCarryThePhaseTransition(t *testing.T) {
	var mu sync.Mutex
	var events []session.ActivityEvent
	sink := session.ActivitySinkFunc(func(ctx context.Context, event session.ActivityEvent) error {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
		return nil
	})

	store := session.NewStore(newStubGateway(), session.WithActivitySink(sink))

	_, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, store.SignOut(context.Background()))

	byType := func(eventType session.ActivityEventType) session.ActivityEvent {
		mu.Lock()
		defer mu.Unlock()
		for _, event := range events {
			if event.EventType == eventType {
				return event
			}
		}
		t.Fatalf("no %s event recorded", eventType)
		return session.ActivityEvent{}
	}

	signIn := byType(session.ActivityEventSignInSuccess)
	assert.Equal(t, session.PhaseAuthenticating, signIn.FromPhase)
	assert.Equal(t, session.PhaseAuthenticated, signIn.ToPhase)

	signOut := byType(session.ActivityEventSignOut)
	assert.Equal(t, session.PhaseAuthenticating, signOut.FromPhase)
	assert.Equal(t, session.PhaseUnauthenticated, signOut.ToPhase)
}

func TestBeginOAuthInitiationFailureSetsError(t *testing.T) {
	gateway := newStubGateway()
	gateway.beginOAuth = func(ctx context.Context, provider, redirectTo string) (string, error) {
		return "", errors.New("provider registry offline")
	}

	store := session.NewStore(gateway)

	_, err := store.BeginOAuth(context.Background(), "google", "/dashboard")
	require.Error(t, err)

	// OAuth initiation failures never enter Authenticating.
	snap := store.Snapshot()
	assert.Error(t, snap.Err)
	assert.Equal(t, session.PhaseUnknown, snap.Phase)
}

func TestBeginOAuthReturnsRedirectURL(t *testing.T) {
	store := session.NewStore(newStubGateway())

	url, err := store.BeginOAuth(context.Background(), "google", "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "https://provider.example/authorize", url)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	store := session.NewStore(newStubGateway())
	store.Close()

	_, err := store.SignIn(context.Background(), "ada@example.com", "pw")
	assert.ErrorIs(t, err, session.ErrStoreClosed)

	_, err = store.FetchCurrentUserAndProfile(context.Background())
	assert.ErrorIs(t, err, session.ErrStoreClosed)
}

func TestSnapshotIsACopy(t *testing.T) {
	gateway := newStubGateway()
	gateway.currentIdentity = func(ctx context.Context) (session.Identity, error) {
		return testIdentity{id: "user-1", email: "ada@example.com"}, nil
	}
	gateway.fetchProfile = func(ctx context.Context, identityID string) (*session.Profile, error) {
		return &session.Profile{IdentityID: identityID, DisplayName: "Ada"}, nil
	}

	store := session.NewStore(gateway)
	_, err := store.FetchCurrentUserAndProfile(context.Background())
	require.NoError(t, err)

	snap := store.Snapshot()
	snap.User.Profile.DisplayName = "mutated"

	assert.Equal(t, "Ada", store.Snapshot().User.Profile.DisplayName)
}
