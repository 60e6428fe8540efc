package session

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Store is the process-wide session state container. It is created once,
// injected into consumers, and mutated exclusively through the transition
// methods below: either by explicit user action (forms) or by the gateway's
// push listener. Reads are side-effect free.
type Store struct {
	gateway Gateway
	logger  Logger
	sink    ActivitySink
	now     func() time.Time

	mu         sync.Mutex
	snap       Snapshot
	prevPhase  Phase
	fetchGen   uint64
	opInFlight bool
	closed     bool
	release    func()
	listening  bool

	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// StoreOption customizes store construction.
type StoreOption func(*Store)

// WithLogger overrides the default logger.
func WithLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish session events.
func WithActivitySink(sink ActivitySink) StoreOption {
	return func(s *Store) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewStore returns a store in the Unknown phase with isLoading set, the
// shape consumers observe until the initial session check resolves.
func NewStore(gateway Gateway, opts ...StoreOption) *Store {
	s := &Store{
		gateway: gateway,
		logger:  defLogger{},
		sink:    noopActivitySink{},
		now:     time.Now,
		snap: Snapshot{
			Phase:     PhaseUnknown,
			IsLoading: true,
		},
		prevPhase:   PhaseUnknown,
		subscribers: map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneSnapshotLocked()
}

// Subscribe registers a reactive consumer. The callback fires immediately
// with the current snapshot and again after every transition, until the
// returned release function is called.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	current := s.cloneSnapshotLocked()
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Run subscribes the store to the gateway's session-changed push channel
// and performs the initial session check. It blocks until ctx is cancelled,
// the store is closed, or the gateway closes the channel. Events are
// processed strictly in delivery order.
func (s *Store) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if s.listening {
		s.mu.Unlock()
		return errors.New("store is already running", errors.CategoryConflict)
	}
	events, release := s.gateway.SessionChanges()
	s.listening = true
	s.release = release
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		release()
	}()

	// Initial session check; concurrent push events supersede it via the
	// fetch generation counter.
	go func() {
		if _, err := s.FetchCurrentUserAndProfile(ctx); err != nil {
			s.logger.Debug("initial session check failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleSessionChanged(ctx, event)
		}
	}
}

// Close tears the store down. Subsequent transitions fail with
// ErrStoreClosed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	release := s.release
	s.release = nil
	s.mu.Unlock()

	if release != nil {
		release()
	}
}

// SignIn verifies credentials through the gateway. On success the store
// enters Authenticated with the identity (profile arrives through the
// session-changed push); on failure it returns to Unauthenticated with the
// error recorded for the UI.
func (s *Store) SignIn(ctx context.Context, email, password string) (*User, error) {
	if err := s.beginOperation(); err != nil {
		return nil, err
	}

	identity, err := s.gateway.SignIn(ctx, email, password)
	if err != nil {
		opErr := normalizeGatewayError(err)
		s.settleFailure(opErr)
		s.record(ctx, ActivityEventSignInFailure, "", map[string]any{
			"identifier": email,
			"error":      opErr.Error(),
		})
		return nil, opErr
	}

	user := userFromIdentity(identity)
	s.settleAuthenticated(user)
	s.record(ctx, ActivityEventSignInSuccess, user.ID, map[string]any{
		"identifier": email,
	})
	return user, nil
}

// SignUp registers a new account. The outcome is tagged: an immediately
// active account authenticates the session; a pending-verification account
// leaves the session Unauthenticated with no error, and the informational
// message travels back to the caller on its own channel.
func (s *Store) SignUp(ctx context.Context, req SignUpRequest) (*SignUpOutcome, error) {
	if err := s.beginOperation(); err != nil {
		return nil, err
	}

	outcome, err := s.gateway.SignUp(ctx, req)
	if err != nil {
		opErr := normalizeGatewayError(err)
		s.settleFailure(opErr)
		s.record(ctx, ActivityEventSignUpFailure, "", map[string]any{
			"identifier": req.Email,
			"error":      opErr.Error(),
		})
		return nil, opErr
	}

	if outcome == nil {
		opErr := errors.New("gateway returned no sign-up outcome", ErrTransport.Category).
			WithTextCode(ErrTransport.TextCode)
		s.settleFailure(opErr)
		s.record(ctx, ActivityEventSignUpFailure, "", map[string]any{
			"identifier": req.Email,
			"error":      opErr.Error(),
		})
		return nil, opErr
	}

	if outcome.Activated() {
		user := userFromIdentity(outcome.Identity)
		s.settleAuthenticated(user)
		s.record(ctx, ActivityEventSignUpSuccess, user.ID, map[string]any{
			"identifier": req.Email,
		})
		return outcome, nil
	}

	s.settleUnauthenticated(nil)
	s.record(ctx, ActivityEventSignUpPending, "", map[string]any{
		"identifier": req.Email,
	})
	return outcome, nil
}

// SignOut revokes the session. Local state is always cleared, remote
// failure included, so the UI can never get stuck authenticated against a
// broken backend. The remote error is logged, not surfaced via the
// snapshot's error field.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.beginOperation(); err != nil {
		return err
	}

	userID := ""
	if snap := s.Snapshot(); snap.User != nil {
		userID = snap.User.ID
	}

	err := s.gateway.SignOut(ctx)
	if err != nil {
		s.logger.Warn("remote sign-out failed, clearing local session anyway", "error", err)
	}

	s.settleUnauthenticated(nil)
	s.record(ctx, ActivityEventSignOut, userID, nil)
	return nil
}

// BeginOAuth starts a redirect-based OAuth flow and returns the URL to
// send the user to. The flow's result arrives later through the push
// listener; only initiation failures are reported here.
func (s *Store) BeginOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	url, err := s.gateway.BeginOAuth(ctx, provider, redirectTo)
	if err != nil {
		opErr := errors.Wrap(err, ErrOAuthInitiation.Category, ErrOAuthInitiation.Message).
			WithTextCode(ErrOAuthInitiation.TextCode)
		s.setError(opErr)
		return "", opErr
	}

	s.record(ctx, ActivityEventOAuthStarted, "", map[string]any{
		"provider": provider,
	})
	return url, nil
}

// FetchCurrentUserAndProfile resolves the gateway's current identity and
// then its profile record. No identity is a successful "no session"
// outcome; a missing profile row degrades to a partial user rather than
// failing. Each invocation supersedes any still-running predecessor: a
// stale fetch that resolves after a newer one (or after a sign-out push)
// is discarded without touching state.
func (s *Store) FetchCurrentUserAndProfile(ctx context.Context) (*User, error) {
	gen, err := s.beginFetch()
	if err != nil {
		return nil, err
	}

	identity, err := s.gateway.CurrentIdentity(ctx)
	if err != nil {
		opErr := normalizeGatewayError(err)
		s.resolveFetchFailure(gen, opErr)
		return nil, opErr
	}

	if identity == nil {
		s.resolveFetchUnauthenticated(gen)
		return nil, nil
	}

	profile, err := s.gateway.FetchProfile(ctx, identity.ID())
	if err != nil {
		opErr := normalizeGatewayError(err)
		s.resolveFetchFailure(gen, opErr)
		return nil, opErr
	}

	user := userFromIdentity(identity)
	user.Profile = profile
	s.resolveFetchAuthenticated(gen, user)
	return user, nil
}

// HandleSessionChanged applies a gateway push event. A nil session means
// signed out: the store collapses to Unauthenticated immediately. A non-nil
// session is recorded provisionally and a profile fetch is triggered to
// obtain the combined identity+profile view.
func (s *Store) HandleSessionChanged(ctx context.Context, event SessionEvent) {
	if event.Session == nil || event.Session.Identity == nil {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		// Invalidate in-flight fetches so a stale resolution cannot
		// resurrect the session.
		s.fetchGen++
		s.setPhaseLocked(PhaseUnauthenticated)
		s.snap.User = nil
		s.snap.IsAuthenticated = false
		s.snap.IsLoading = false
		s.snap.Err = nil
		s.opInFlight = false
		subs, snap := s.notifyTargetsLocked()
		s.mu.Unlock()

		s.dispatch(subs, snap)
		s.record(ctx, ActivityEventSessionChanged, "", map[string]any{
			"event": string(event.Type),
		})
		return
	}

	identity := event.Session.Identity

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.snap.User = userFromIdentity(identity)
	s.setPhaseLocked(PhaseAuthenticating)
	s.snap.IsLoading = true
	s.snap.Err = nil
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
	s.record(ctx, ActivityEventSessionChanged, identity.ID(), map[string]any{
		"event": string(event.Type),
	})

	go func() {
		if _, err := s.FetchCurrentUserAndProfile(ctx); err != nil {
			s.logger.Debug("profile fetch after session change failed", "error", err)
		}
	}()
}

// beginOperation moves the store into Authenticating for a user-initiated
// request, rejecting overlapping attempts (double-clicked submit buttons).
func (s *Store) beginOperation() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if s.opInFlight {
		s.mu.Unlock()
		return ErrOperationInFlight
	}

	next, err := changePhase(s.snap.Phase, PhaseAuthenticating, false)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.opInFlight = true
	s.setPhaseLocked(next)
	s.snap.IsLoading = true
	s.snap.Err = nil
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
	return nil
}

// beginFetch marks a profile fetch as the latest one and moves the store
// into Authenticating. Unlike beginOperation it never rejects overlap:
// supersession, not exclusion, is the rule for fetches.
func (s *Store) beginFetch() (uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrStoreClosed
	}

	s.fetchGen++
	gen := s.fetchGen
	s.setPhaseLocked(PhaseAuthenticating)
	s.snap.IsLoading = true
	s.snap.Err = nil
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
	return gen, nil
}

// settleAuthenticated completes a successful user-initiated operation.
// It must not bump fetchGen: the gateway's session-changed push fires
// during the operation, and the profile fetch it triggers belongs to
// this same identity.
func (s *Store) settleAuthenticated(user *User) {
	s.mu.Lock()
	s.opInFlight = false
	s.setPhaseLocked(PhaseAuthenticated)
	s.snap.User = user
	s.snap.IsAuthenticated = true
	s.snap.IsLoading = false
	s.snap.Err = nil
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
}

// settleUnauthenticated invalidates the session: in-flight fetches are
// superseded so a stale resolution cannot resurrect it.
func (s *Store) settleUnauthenticated(opErr error) {
	s.mu.Lock()
	s.opInFlight = false
	s.fetchGen++
	s.setPhaseLocked(PhaseUnauthenticated)
	s.snap.User = nil
	s.snap.IsAuthenticated = false
	s.snap.IsLoading = false
	s.snap.Err = opErr
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
}

func (s *Store) settleFailure(opErr error) {
	s.settleUnauthenticated(opErr)
}

// setError records an error without disturbing the rest of the snapshot,
// for failures that never entered Authenticating (OAuth initiation).
func (s *Store) setError(opErr error) {
	s.mu.Lock()
	s.snap.Err = opErr
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
}

func (s *Store) resolveFetchAuthenticated(gen uint64, user *User) {
	s.mu.Lock()
	if gen != s.fetchGen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded profile fetch", "gen", gen)
		return
	}
	s.setPhaseLocked(PhaseAuthenticated)
	s.snap.User = user
	s.snap.IsAuthenticated = true
	s.snap.IsLoading = false
	s.snap.Err = nil
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
}

func (s *Store) resolveFetchUnauthenticated(gen uint64) {
	s.mu.Lock()
	if gen != s.fetchGen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded profile fetch", "gen", gen)
		return
	}
	s.setPhaseLocked(PhaseUnauthenticated)
	s.snap.User = nil
	s.snap.IsAuthenticated = false
	s.snap.IsLoading = false
	s.snap.Err = nil
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
}

func (s *Store) resolveFetchFailure(gen uint64, opErr error) {
	s.mu.Lock()
	if gen != s.fetchGen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded profile fetch", "gen", gen, "error", opErr)
		return
	}
	s.setPhaseLocked(PhaseUnauthenticated)
	s.snap.User = nil
	s.snap.IsAuthenticated = false
	s.snap.IsLoading = false
	s.snap.Err = opErr
	subs, snap := s.notifyTargetsLocked()
	s.mu.Unlock()

	s.dispatch(subs, snap)
}

// setPhaseLocked applies a phase change while remembering where the
// store came from, so activity events can report the transition.
func (s *Store) setPhaseLocked(next Phase) {
	s.prevPhase = s.snap.Phase
	s.snap.Phase = next
}

func (s *Store) cloneSnapshotLocked() Snapshot {
	snap := s.snap
	if snap.User != nil {
		user := *snap.User
		if user.Profile != nil {
			profile := *user.Profile
			user.Profile = &profile
		}
		snap.User = &user
	}
	return snap
}

// notifyTargetsLocked collects the subscriber list and a snapshot copy
// while the lock is held; dispatch runs after release so a subscriber can
// read the store without deadlocking.
func (s *Store) notifyTargetsLocked() ([]func(Snapshot), Snapshot) {
	if len(s.subscribers) == 0 {
		return nil, Snapshot{}
	}
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs, s.cloneSnapshotLocked()
}

func (s *Store) dispatch(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) record(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	s.mu.Lock()
	from, to := s.prevPhase, s.snap.Phase
	s.mu.Unlock()

	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		FromPhase:  from,
		ToPhase:    to,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if err := normalizeActivitySink(s.sink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

// normalizeGatewayError maps arbitrary gateway failures onto the package
// taxonomy: rich errors pass through, anything else is treated as a
// transport failure.
func normalizeGatewayError(err error) error {
	if err == nil {
		return nil
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, ErrTransport.Category, ErrTransport.Message).
		WithTextCode(ErrTransport.TextCode)
}
